// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package plugin

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-policy/internal/policy/types"
)

// ManifestFile is the bundle manifest file name.
const ManifestFile = "plugin.yaml"

// InputFormat names a built-in record constructor.
type InputFormat string

// Input formats.
const (
	InputFormatRecord InputFormat = "record"
	InputFormatCedar  InputFormat = "cedar"
)

// Manifest describes a capability bundle. Bundles select among the
// built-in components; they never ship code.
type Manifest struct {
	Name        string         `yaml:"name" jsonschema:"pattern=^[a-z]([a-z0-9_-]*[a-z0-9])?$,maxLength=64"`
	Version     string         `yaml:"version"`
	Description string         `yaml:"description,omitempty"`
	Engine      *EngineConfig  `yaml:"engine,omitempty"`
	Transpiler  types.Language `yaml:"transpiler,omitempty" jsonschema:"enum=rego,enum=cedar"`
	Summarizer  string         `yaml:"summarizer,omitempty" jsonschema:"enum=default"`
	InputTypes  []InputType    `yaml:"input_types,omitempty"`
}

// EngineConfig selects a backend engine.
type EngineConfig struct {
	Type       types.Language `yaml:"type" jsonschema:"enum=rego,enum=cedar"`
	Executable string         `yaml:"executable,omitempty"`
}

// InputType declares a custom target type.
type InputType struct {
	Name   string      `yaml:"name"`
	Format InputFormat `yaml:"format,omitempty" jsonschema:"enum=record,enum=cedar"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9_-]*[a-z0-9])?$`)

// ParseManifest parses and validates a plugin.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, '-' or '_', and end with a letter or digit", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not a semantic version: %w", m.Version, err)
	}

	if m.Engine != nil {
		if !knownLanguage(m.Engine.Type) {
			return fmt.Errorf("engine.type must be 'rego' or 'cedar', got %q", m.Engine.Type)
		}
	}
	if m.Transpiler != "" && !knownLanguage(m.Transpiler) {
		return fmt.Errorf("transpiler must be 'rego' or 'cedar', got %q", m.Transpiler)
	}
	if m.Summarizer != "" && m.Summarizer != DefaultName {
		return fmt.Errorf("summarizer must be %q, got %q", DefaultName, m.Summarizer)
	}

	seen := make(map[string]bool, len(m.InputTypes))
	for i, it := range m.InputTypes {
		if it.Name == "" {
			return fmt.Errorf("input_types[%d].name is required", i)
		}
		if seen[it.Name] {
			return fmt.Errorf("input type %q declared twice", it.Name)
		}
		seen[it.Name] = true
		switch it.Format {
		case "", InputFormatRecord, InputFormatCedar:
		default:
			return fmt.Errorf("input_types[%d].format must be 'record' or 'cedar', got %q", i, it.Format)
		}
	}
	return nil
}

func knownLanguage(l types.Language) bool {
	return l == types.LanguageRego || l == types.LanguageCedar
}
