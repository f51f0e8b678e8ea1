// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg provides XDG Base Directory paths for holoauth.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "holoauth"

// ConfigDir returns the XDG config directory for holoauth.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	return filepath.Join(baseDir("XDG_CONFIG_HOME", ".config"), appName)
}

// DataDir returns the XDG data directory for holoauth.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	return filepath.Join(baseDir("XDG_DATA_HOME", ".local", "share"), appName)
}

// ConfigFile is the config file read when --config is not given.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DatabaseFile is the default bbolt database path.
func DatabaseFile() string {
	return filepath.Join(DataDir(), "holoauth.db")
}

// CertsDir returns the TLS certificates directory.
func CertsDir() string {
	return filepath.Join(ConfigDir(), "certs")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func baseDir(env string, fallback ...string) string {
	if base := os.Getenv(env); base != "" {
		return base
	}
	return filepath.Join(append([]string{os.Getenv("HOME")}, fallback...)...)
}
