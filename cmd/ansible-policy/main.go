// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package main is the entry point for the ansible-policy CLI.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ansible/ansible-policy/pkg/errutil"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = versionString()

	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errViolation) {
			errutil.LogError(slog.Default(), "command failed", err)
		}
		os.Exit(1)
	}
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}
