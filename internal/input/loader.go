// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package input

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-policy/pkg/errutil"
)

// Loader produces the records of one target type found at path.
type Loader interface {
	Load(ctx context.Context, targetType, path string) ([]*Record, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, targetType, path string) ([]*Record, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, targetType, path string) ([]*Record, error) {
	return f(ctx, targetType, path)
}

// recordExts are the file extensions FileLoader reads when walking a directory.
var recordExts = map[string]bool{".json": true, ".yml": true, ".yaml": true}

// FileLoader reads records from JSON or YAML files. A file holds a single
// record, a list of records, or a mapping from target type to records.
type FileLoader struct {
	constructors map[string]Constructor
}

// NewFileLoader returns a loader that builds records of the given custom
// types with their constructors and everything else with DefaultConstructor.
func NewFileLoader(constructors map[string]Constructor) *FileLoader {
	c := make(map[string]Constructor, len(constructors))
	for name, fn := range constructors {
		c[name] = fn
	}
	return &FileLoader{constructors: c}
}

var _ Loader = (*FileLoader)(nil)

// Load implements Loader. Directories are walked in lexical order.
func (l *FileLoader) Load(ctx context.Context, targetType, path string) ([]*Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, oops.Code(errutil.CodeMissingTargetData).
			With("target_type", targetType).
			With("path", path).
			Wrapf(err, "reading target data")
	}
	if !info.IsDir() {
		return l.loadFile(targetType, path)
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if recordExts[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	sort.Strings(files)

	var out []*Record
	for _, f := range files {
		recs, err := l.loadFile(targetType, f)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (l *FileLoader) loadFile(targetType, path string) ([]*Record, error) {
	body, err := os.ReadFile(path) //nolint:gosec // target path is user supplied
	if err != nil {
		return nil, oops.Code(errutil.CodeMissingTargetData).
			With("target_type", targetType).
			With("path", path).
			Wrapf(err, "reading target data")
	}
	doc, err := Decode(body)
	if err != nil {
		return nil, oops.Code(errutil.CodeMissingTargetData).
			With("target_type", targetType).
			With("path", path).
			Wrapf(err, "decoding target data")
	}

	items, err := recordDocs(doc, targetType)
	if err != nil {
		return nil, oops.Code(errutil.CodeMissingTargetData).
			With("target_type", targetType).
			With("path", path).
			Wrap(err)
	}

	out := make([]*Record, 0, len(items))
	for i, item := range items {
		if _, ok := item["type"]; !ok {
			item["type"] = targetType
		}
		if _, ok := item["filepath"]; !ok {
			item["filepath"] = path
		}
		typ, _ := item["type"].(string)
		build := l.constructors[typ]
		if build == nil {
			build = DefaultConstructor
		}
		r, err := build(item)
		if err != nil {
			return nil, oops.Code(errutil.CodeMissingTargetData).
				With("target_type", targetType).
				With("path", path).
				With("index", i).
				Wrapf(err, "building record")
		}
		out = append(out, r)
	}
	return out, nil
}

// Decode parses body as JSON, falling back to YAML.
func Decode(body []byte) (any, error) {
	var doc any
	jsonErr := json.Unmarshal(body, &doc)
	if jsonErr == nil {
		return doc, nil
	}
	if yamlErr := yaml.Unmarshal(body, &doc); yamlErr != nil {
		return nil, errors.Join(
			fmt.Errorf("json: %w", jsonErr),
			fmt.Errorf("yaml: %w", yamlErr),
		)
	}
	return doc, nil
}

// recordDocs normalizes a decoded document to a list of record mappings.
func recordDocs(doc any, targetType string) ([]map[string]any, error) {
	switch t := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		return mappings(t)
	case map[string]any:
		if _, ok := t["type"]; ok {
			return []map[string]any{t}, nil
		}
		v, ok := t[targetType]
		if !ok {
			return nil, nil
		}
		switch inner := v.(type) {
		case []any:
			return mappings(inner)
		case map[string]any:
			return []map[string]any{inner}, nil
		}
		return nil, fmt.Errorf("records under %q must be a list, got %T", targetType, v)
	}
	return nil, fmt.Errorf("target data must be a mapping or a list, got %T", doc)
}

func mappings(items []any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d must be a mapping, got %T", i, item)
		}
		out = append(out, m)
	}
	return out, nil
}
