// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package input

import (
	"fmt"
)

// TypeCedar is the custom input type carrying a Cedar authorization request.
const TypeCedar = "cedar"

// CedarRequest is the authorization request held by a cedar record.
type CedarRequest struct {
	Principal string         `json:"principal"`
	Actions   []string       `json:"action"`
	Resource  string         `json:"resource"`
	Entities  []any          `json:"entities"`
	Context   map[string]any `json:"context,omitempty"`
	Schema    any            `json:"schema,omitempty"`
}

// CedarConstructor builds a cedar record and checks the request shape.
func CedarConstructor(data map[string]any) (*Record, error) {
	if data != nil {
		if _, ok := data["type"]; !ok {
			data["type"] = TypeCedar
		}
	}
	r, err := DefaultConstructor(data)
	if err != nil {
		return nil, err
	}
	if _, err := CedarRequestOf(r); err != nil {
		return nil, err
	}
	return r, nil
}

// CedarRequestOf extracts the request from r. Records of other types yield
// a request whose principal, action and resource fields are read from the
// same keys when present.
func CedarRequestOf(r *Record) (*CedarRequest, error) {
	req := &CedarRequest{Entities: []any{}}
	var ok bool
	if v, present := r.Data["principal"]; present {
		if req.Principal, ok = v.(string); !ok {
			return nil, fmt.Errorf("cedar principal must be a string, got %T", v)
		}
	}
	if v, present := r.Data["resource"]; present {
		if req.Resource, ok = v.(string); !ok {
			return nil, fmt.Errorf("cedar resource must be a string, got %T", v)
		}
	}
	switch a := r.Data["action"].(type) {
	case nil:
	case string:
		req.Actions = []string{a}
	case []any:
		for _, item := range a {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("cedar action list must contain strings, got %T", item)
			}
			req.Actions = append(req.Actions, s)
		}
	default:
		return nil, fmt.Errorf("cedar action must be a string or a list, got %T", a)
	}
	switch e := r.Data["entities"].(type) {
	case nil:
	case []any:
		req.Entities = e
	default:
		return nil, fmt.Errorf("cedar entities must be a list, got %T", e)
	}
	switch c := r.Data["context"].(type) {
	case nil:
	case map[string]any:
		req.Context = c
	default:
		return nil, fmt.Errorf("cedar context must be a mapping, got %T", c)
	}
	req.Schema = r.Data["schema"]
	return req, nil
}
