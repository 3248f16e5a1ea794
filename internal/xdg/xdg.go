// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg resolves warden's XDG base directories.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "warden"

func baseDir(env string, fallback ...string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName)
	}
	parts := append([]string{os.Getenv("HOME")}, fallback...)
	return filepath.Join(append(parts, appName)...)
}

// ConfigDir is $XDG_CONFIG_HOME/warden, or ~/.config/warden.
func ConfigDir() string {
	return baseDir("XDG_CONFIG_HOME", ".config")
}

// DataDir is $XDG_DATA_HOME/warden, or ~/.local/share/warden.
func DataDir() string {
	return baseDir("XDG_DATA_HOME", ".local", "share")
}

// ConfigFile is the config file read when --config is not given.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// UsersFile is the default snapshot file of the memory directory.
func UsersFile() string {
	return filepath.Join(DataDir(), "users.yaml")
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
