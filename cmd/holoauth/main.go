// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command holoauth runs the holoauth authentication service and its
// operational tooling.
package main

import (
	"fmt"
	"os"

	"github.com/samber/oops"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	exitFailure    = 1
	exitNotServing = 2
)

func main() {
	root := NewRootCmd()
	root.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode lets callers tell an unhealthy server apart from a failed check.
func exitCode(err error) int {
	if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() == "NOT_SERVING" {
		return exitNotServing
	}
	return exitFailure
}
