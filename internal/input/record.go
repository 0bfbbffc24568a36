// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package input loads the targets policies are evaluated against.
package input

import (
	"fmt"

	"github.com/ansible/ansible-policy/internal/policy/types"
)

// Record is one evaluation target. Data is the document handed to the
// backend as its input; the other fields are lifted from it for reporting.
type Record struct {
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	Filepath string          `json:"filepath"`
	Lines    *types.LineSpan `json:"lines,omitempty"`
	Data     map[string]any  `json:"data"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// Constructor builds a Record from a decoded document.
type Constructor func(data map[string]any) (*Record, error)

// DefaultConstructor lifts type, name, filepath, lines and metadata out of
// data. The type must be present and non-empty.
func DefaultConstructor(data map[string]any) (*Record, error) {
	if data == nil {
		return nil, fmt.Errorf("record must be a mapping")
	}
	typ, _ := data["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("record field %q must be a non-empty string", "type")
	}
	r := &Record{
		Type: typ,
		Data: data,
	}
	r.Name, _ = data["name"].(string)
	r.Filepath, _ = data["filepath"].(string)
	if md, ok := data["metadata"].(map[string]any); ok {
		r.Metadata = md
	}
	lines, err := lineSpan(data["lines"])
	if err != nil {
		return nil, err
	}
	r.Lines = lines
	return r, nil
}

// lineSpan accepts {begin, end} mappings and the "L3-7" string form.
func lineSpan(v any) (*types.LineSpan, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		var s types.LineSpan
		if n, _ := fmt.Sscanf(t, "L%d-%d", &s.Begin, &s.End); n == 0 {
			return nil, fmt.Errorf("invalid lines %q", t)
		}
		return &s, nil
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
		begin, ok := asInt(t["begin"])
		if !ok {
			return nil, fmt.Errorf("lines.begin must be an integer")
		}
		end, _ := asInt(t["end"])
		return &types.LineSpan{Begin: begin, End: end}, nil
	}
	return nil, fmt.Errorf("lines must be a mapping, got %T", v)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
