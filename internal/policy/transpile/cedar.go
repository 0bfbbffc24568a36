// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import (
	"strings"

	"github.com/cedar-policy/cedar-go"
	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/policy/policybook"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// cedarKinds maps policy book action kinds onto Cedar effects.
var cedarKinds = map[types.ActionKind]string{
	types.ActionPermit: "permit",
	types.ActionAllow:  "permit",
	types.ActionForbid: "forbid",
	types.ActionDeny:   "forbid",
}

// Cedar compiles policies into Cedar policy files.
type Cedar struct {
	verify bool
}

var _ Transpiler = (*Cedar)(nil)

// CedarOption configures the Cedar transpiler.
type CedarOption func(*Cedar)

// WithVerify parses every emitted file with the Cedar reference parser.
func WithVerify() CedarOption {
	return func(c *Cedar) { c.verify = true }
}

// NewCedar returns the Cedar transpiler.
func NewCedar(opts ...CedarOption) *Cedar {
	c := &Cedar{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Language implements Transpiler.
func (*Cedar) Language() types.Language { return types.LanguageCedar }

// Transpile implements Transpiler.
func (t *Cedar) Transpile(set *policybook.PolicySet) ([]*types.CompiledPolicy, error) {
	return transpileSet(t, set)
}

// TranspilePolicy implements Transpiler.
func (t *Cedar) TranspilePolicy(set *policybook.PolicySet, p *policybook.Policy) (*types.CompiledPolicy, error) {
	mod, err := t.Module(set, p)
	if err != nil {
		return nil, err
	}
	name := mod.Package.Name
	body := RenderCedar(mod)

	if t.verify {
		if _, err := cedar.NewPolicySetFromBytes(name+".cedar", []byte(body)); err != nil {
			return nil, oops.Code(errutil.CodeParse).
				With("policy", p.Name).
				Wrapf(err, "verifying cedar output")
		}
	}

	return &types.CompiledPolicy{
		Name:     name,
		Language: types.LanguageCedar,
		Body:     body,
		Metadata: metadataFor(p, name),
	}, nil
}

// Module builds the IR for one policy. Every action becomes its own
// statement carrying the policy's when and unless blocks.
func (t *Cedar) Module(set *policybook.PolicySet, p *policybook.Policy) (*Module, error) {
	r := cedarRenderer{vars: set.Vars}
	cond, err := renderNode(r, p.Condition)
	if err != nil {
		return nil, err
	}
	exc, err := renderNode(r, p.Exception)
	if err != nil {
		return nil, err
	}

	mod := &Module{
		Package:  &Package{Name: SanitizeName(p.Name)},
		Comments: []Comment{{Key: types.TargetMarker, Value: mustJSON(p.TargetType)}},
	}
	if len(p.Tags) > 0 {
		mod.Comments = append(mod.Comments, Comment{Key: types.TagsMarker, Value: mustJSON(p.Tags)})
	}

	var blocks []Block
	if cond != "" && cond != "()" {
		blocks = append(blocks, Block{Keyword: KeywordWhen, Body: cond})
	}
	if exc != "" && exc != "()" {
		blocks = append(blocks, Block{Keyword: KeywordUnless, Body: exc})
	}

	for _, a := range p.Actions {
		if _, ok := cedarKinds[a.Kind]; !ok {
			return nil, unsupported("cedar", "the "+string(a.Kind)+" action")
		}
		mod.Rules = append(mod.Rules, Rule{
			Kind:      a.Kind,
			Principal: RenderMatcher("principal", a.Principal),
			Action:    RenderMatcher("action", a.Action),
			Resource:  RenderMatcher("resource", a.Resource),
			Blocks:    blocks,
		})
	}
	return mod, nil
}

// RenderCedar serializes a Cedar module.
func RenderCedar(m *Module) string {
	lines := make([]string, 0, len(m.Comments)+len(m.Rules))
	for _, c := range m.Comments {
		lines = append(lines, "// "+c.Key+" = "+c.Value)
	}
	for _, r := range m.Rules {
		lines = append(lines, cedarStatement(r))
	}
	return strings.Join(lines, "\n")
}

func cedarStatement(r Rule) string {
	var b strings.Builder
	b.WriteString("\n" + cedarKinds[r.Kind] + " (\n")
	b.WriteString("    " + r.Principal + ",\n")
	b.WriteString("    " + r.Action + ",\n")
	b.WriteString("    " + r.Resource + "\n)")
	for _, blk := range r.Blocks {
		b.WriteString("\n" + blk.Keyword + " {\n    " + blk.Body + "\n}")
	}
	b.WriteString(";\n")
	return b.String()
}
