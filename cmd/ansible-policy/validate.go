// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ansible/ansible-policy/internal/plugin"
	"github.com/ansible/ansible-policy/internal/policy/policybook"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATH...",
		Short: "Validate policybooks and plugin manifests without evaluating",
		Long: `Validates policybook files against the policybook schema and parses
their conditions. Files named plugin.yaml are validated as plugin manifests.
Directories are searched for .yml and .yaml files.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch policy errors early:
  ansible-policy validate policies/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args)
		},
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := yamlFilesUnder(args)
	if err != nil {
		return err
	}

	var failed int
	for _, f := range files {
		if err := validateFile(f); err != nil {
			failed++
			slog.Error("validation failed", "path", f, "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", f, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", f)
	}

	if failed > 0 {
		return fmt.Errorf("validation failed: %d of %d files invalid", failed, len(files))
	}
	slog.Info("all files valid", "count", len(files))
	return nil
}

func validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	if filepath.Base(path) == plugin.ManifestFile {
		if err := plugin.ValidateSchema(data); err != nil {
			return errors.New(plugin.FormatSchemaError(err))
		}
		_, err := plugin.ParseManifest(data)
		return err
	}

	if err := policybook.ValidateSchema(data); err != nil {
		return err
	}
	_, err = policybook.Load(data)
	return err
}

func yamlFilesUnder(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != root && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if ext := filepath.Ext(p); ext == ".yml" || ext == ".yaml" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
	}
	return files, nil
}
