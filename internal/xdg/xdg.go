// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package xdg provides XDG Base Directory paths for ansible-policy.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "ansible-policy"

// SettingsFile is the CLI settings file name under ConfigDir.
const SettingsFile = "settings.yaml"

// ConfigDir returns the XDG config directory for ansible-policy.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// CacheDir returns the XDG cache directory for ansible-policy.
// Checks XDG_CACHE_HOME first, falls back to ~/.cache.
func CacheDir() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".cache")
	}
	return filepath.Join(base, appName)
}

// SettingsPath returns the default settings file path.
func SettingsPath() string {
	return filepath.Join(ConfigDir(), SettingsFile)
}

// SourcesDir returns the default install root for policy sources.
func SourcesDir() string {
	return filepath.Join(CacheDir(), "sources")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
