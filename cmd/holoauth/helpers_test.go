// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import "log/slog"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
