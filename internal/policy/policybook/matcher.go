// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package policybook

import (
	"fmt"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// MatcherKind discriminates Matcher forms.
type MatcherKind int

// Matcher kinds. The zero value matches anything.
const (
	MatchAny MatcherKind = iota
	MatchExact
	MatchIn
	MatchIs
	MatchIsIn
)

// Matcher constrains the principal, action or resource of a rule.
//
// Value holds a string for Exact, and a string or a list for In and IsIn.
// Lists may nest; items are kept as written.
type Matcher struct {
	Kind  MatcherKind
	Type  string
	Value any
}

// Exact returns a Matcher requiring equality with v.
func Exact(v string) Matcher { return Matcher{Kind: MatchExact, Value: v} }

// In returns a Matcher requiring membership in v, a string or a list.
func In(v any) Matcher { return Matcher{Kind: MatchIn, Value: v} }

// Is returns a Matcher requiring entity type t.
func Is(t string) Matcher { return Matcher{Kind: MatchIs, Type: t} }

// IsIn returns a Matcher requiring entity type t and membership in v.
func IsIn(t string, v any) Matcher { return Matcher{Kind: MatchIsIn, Type: t, Value: v} }

// UnmarshalYAML decodes the null, scalar, list and {is, in} map forms.
func (m *Matcher) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			*m = Matcher{}
			return nil
		}
		*m = Exact(node.Value)
		return nil

	case yaml.SequenceNode:
		var list []any
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*m = In(list)
		return nil

	case yaml.MappingNode:
		var raw map[string]any
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		for k := range raw {
			if k != "is" && k != "in" {
				return fmt.Errorf("line %d: unknown matcher key %q", node.Line, k)
			}
		}
		isVal, hasIs := raw["is"]
		inVal, hasIn := raw["in"]
		typ := ""
		if hasIs {
			s, ok := isVal.(string)
			if !ok {
				return fmt.Errorf("line %d: matcher 'is' must be a string", node.Line)
			}
			typ = s
		}
		switch {
		case hasIs && hasIn:
			*m = IsIn(typ, inVal)
		case hasIn:
			*m = In(inVal)
		case hasIs:
			*m = Is(typ)
		default:
			*m = Matcher{}
		}
		return nil
	}
	return fmt.Errorf("line %d: unsupported matcher form", node.Line)
}

// JSONSchema describes the accepted matcher forms.
func (Matcher) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "null"},
			{Type: "string"},
			{Type: "array"},
			{Type: "object", MinProperties: ptr(uint64(1)), MaxProperties: ptr(uint64(2))},
		},
	}
}

func ptr[T any](v T) *T { return &v }
