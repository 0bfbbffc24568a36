// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package policybook

import (
	"fmt"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-policy/internal/policy/dsl"
)

// bookDoc is the on-disk shape of a policy book: a list of policy sets.
type bookDoc []setDoc

type setDoc struct {
	Name                  string      `yaml:"name" jsonschema:"minLength=1"`
	Hosts                 any         `yaml:"hosts,omitempty" jsonschema:"oneof_type=string;array"`
	Vars                  varsDoc     `yaml:"vars,omitempty"`
	Policies              []policyDoc `yaml:"policies"`
	MatchMultiplePolicies bool        `yaml:"match_multiple_policies,omitempty"`
}

type policyDoc struct {
	Name      string        `yaml:"name" jsonschema:"minLength=1"`
	Target    string        `yaml:"target" jsonschema:"minLength=1"`
	Condition conditionDoc  `yaml:"condition"`
	Exception *conditionDoc `yaml:"exception,omitempty"`
	Actions   []actionDoc   `yaml:"actions" jsonschema:"minItems=1"`
	Tags      []string      `yaml:"tags,omitempty"`
	Enabled   *bool         `yaml:"enabled,omitempty"`
}

// actionDoc maps exactly one action kind to its arguments.
type actionDoc map[string]*actionArgsDoc

type actionArgsDoc struct {
	Msg       string  `yaml:"msg,omitempty"`
	Principal Matcher `yaml:"principal,omitempty"`
	Action    Matcher `yaml:"action,omitempty"`
	Resource  Matcher `yaml:"resource,omitempty"`
}

// varsDoc keeps variable declaration order.
type varsDoc struct {
	vars *dsl.Vars
}

func (v *varsDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: vars must be a mapping", node.Line)
	}
	v.vars = dsl.NewVars()
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("line %d: %w", node.Content[i+1].Line, err)
		}
		v.vars.Set(node.Content[i].Value, value)
	}
	return nil
}

func (varsDoc) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

// conditionDoc is a condition string, a list of conditions (all must hold),
// or a single-key {all: [...]} / {any: [...]} mapping. Lowering is deferred
// until the set's variables are known.
type conditionDoc struct {
	node *yaml.Node
}

func (c *conditionDoc) UnmarshalYAML(node *yaml.Node) error {
	c.node = node
	return nil
}

func (conditionDoc) JSONSchema() *jsonschema.Schema {
	list := &jsonschema.Schema{Type: "array", MinItems: ptr(uint64(1))}
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string", MinLength: ptr(uint64(1))},
			list,
			{Type: "object", MinProperties: ptr(uint64(1)), MaxProperties: ptr(uint64(1))},
		},
	}
}

// compile lowers the condition using vars.
func (c *conditionDoc) compile(vars *dsl.Vars) (*dsl.Node, error) {
	if c == nil || c.node == nil {
		return nil, nil
	}
	return compileCondition(c.node, vars)
}

func compileCondition(node *yaml.Node, vars *dsl.Vars) (*dsl.Node, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		return dsl.Parse(node.Value, vars)

	case yaml.SequenceNode:
		children, err := compileList(node, vars)
		if err != nil {
			return nil, err
		}
		return dsl.NewAll(children...)

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nil, fmt.Errorf("line %d: condition mapping must have exactly one of all, any", node.Line)
		}
		key, body := node.Content[0].Value, node.Content[1]
		if body.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: %s must be a list", body.Line, key)
		}
		children, err := compileList(body, vars)
		if err != nil {
			return nil, err
		}
		switch key {
		case "all":
			return dsl.NewAll(children...)
		case "any":
			return dsl.NewAny(children...)
		}
		return nil, fmt.Errorf("line %d: unknown condition key %q", node.Line, key)
	}
	return nil, fmt.Errorf("line %d: unsupported condition form", node.Line)
}

func compileList(node *yaml.Node, vars *dsl.Vars) ([]*dsl.Node, error) {
	children := make([]*dsl.Node, 0, len(node.Content))
	for _, item := range node.Content {
		child, err := compileCondition(item, vars)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, fmt.Errorf("line %d: empty condition", item.Line)
		}
		children = append(children, child)
	}
	return children, nil
}

func hostsList(v any) []string {
	switch h := v.(type) {
	case string:
		return []string{h}
	case []any:
		out := make([]string, 0, len(h))
		for _, item := range h {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}
