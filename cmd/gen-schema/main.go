// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Command gen-schema generates the policybook and plugin manifest JSON
// Schema files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ansible/ansible-policy/internal/plugin"
	"github.com/ansible/ansible-policy/internal/policy/policybook"
)

type schemaFile struct {
	name     string
	generate func() ([]byte, error)
}

func main() {
	dir := "schemas"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files := []schemaFile{
		{"policybook.schema.json", policybook.GenerateSchema},
		{"plugin.schema.json", plugin.GenerateSchema},
	}
	for _, f := range files {
		outPath, err := writeSchema(dir, f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", outPath)
	}
}

func writeSchema(dir string, f schemaFile) (string, error) {
	schema, err := f.generate()
	if err != nil {
		return "", fmt.Errorf("generating %s: %w", f.name, err)
	}

	outPath := filepath.Join(dir, f.name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(outPath, schema, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}
