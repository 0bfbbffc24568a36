// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package types

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Metadata marker names embedded in compiled policy text.
const (
	TargetMarker = "__target__"
	TagsMarker   = "__tags__"
)

// Metadata describes a compiled policy.
type Metadata struct {
	Target     string     `json:"target"`
	Tags       []string   `json:"tags,omitempty"`
	Package    string     `json:"package,omitempty"`
	ActionKind ActionKind `json:"action_kind,omitempty"`
}

// CompiledPolicy is one policy in a backend language. Path is empty until
// the text is persisted.
type CompiledPolicy struct {
	Name     string   `json:"name"`
	Language Language `json:"language"`
	Path     string   `json:"path,omitempty"`
	Body     string   `json:"body"`
	Metadata Metadata `json:"metadata"`
}

// LoadCompiled reads a raw .rego or .cedar policy file and recovers its
// metadata from the package line and marker declarations.
func LoadCompiled(path string) (*CompiledPolicy, error) {
	lang, ok := LanguageForExt(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("unsupported policy file extension: %s", path)
	}
	data, err := os.ReadFile(path) //nolint:gosec // policy path comes from discovery
	if err != nil {
		return nil, fmt.Errorf("reading policy %s: %w", path, err)
	}
	body := string(data)

	meta, err := ParseMarkers(body)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if lang == LanguageRego {
		meta.Package = PackageName(body)
		if meta.Package == "" {
			return nil, fmt.Errorf("policy %s: package must be declared", path)
		}
		name = meta.Package
	} else {
		meta.Package = name
	}

	return &CompiledPolicy{
		Name:     name,
		Language: lang,
		Path:     path,
		Body:     body,
		Metadata: meta,
	}, nil
}

// PackageName returns the name of the first `package <name>` line in body.
func PackageName(body string) string {
	const prefix = "package "
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}

// ParseMarkers extracts __target__ and __tags__ declarations. Lines may be
// Rego assignments or Cedar line comments.
func ParseMarkers(body string) (Metadata, error) {
	var meta Metadata
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		line = strings.TrimSpace(strings.TrimPrefix(line, "//"))

		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), ":"))
		value = strings.TrimSpace(value)

		switch name {
		case TargetMarker:
			if err := json.Unmarshal([]byte(value), &meta.Target); err != nil {
				return Metadata{}, fmt.Errorf("invalid %s value %s: %w", TargetMarker, value, err)
			}
		case TagsMarker:
			if err := json.Unmarshal([]byte(value), &meta.Tags); err != nil {
				return Metadata{}, fmt.Errorf("invalid %s value %s: %w", TagsMarker, value, err)
			}
		}
	}
	return meta, sc.Err()
}
