// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import (
	"strings"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/policy/dsl"
	"github.com/ansible/ansible-policy/internal/policy/policybook"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// regoImports are emitted by every Rego module.
var regoImports = []Import{
	{Path: "future.keywords.if"},
	{Path: "future.keywords.in"},
}

// regoAliases binds each namespace root to its place in the input document,
// in emission order.
var regoAliases = []struct {
	root  dsl.Root
	name  string
	value string
}{
	{dsl.RootContext, "context", "input"},
	{dsl.RootPrincipal, "principal", "input.principal"},
	{dsl.RootAction, "action", "input.action"},
	{dsl.RootResource, "resource", "input.resource"},
}

// Rego compiles policies into Rego modules.
type Rego struct{}

var _ Transpiler = (*Rego)(nil)

// NewRego returns the Rego transpiler.
func NewRego() *Rego {
	return &Rego{}
}

// Language implements Transpiler.
func (*Rego) Language() types.Language { return types.LanguageRego }

// Transpile implements Transpiler.
func (t *Rego) Transpile(set *policybook.PolicySet) ([]*types.CompiledPolicy, error) {
	return transpileSet(t, set)
}

// TranspilePolicy implements Transpiler.
func (t *Rego) TranspilePolicy(set *policybook.PolicySet, p *policybook.Policy) (*types.CompiledPolicy, error) {
	mod, err := t.Module(set, p)
	if err != nil {
		return nil, err
	}
	name := mod.Package.Name
	return &types.CompiledPolicy{
		Name:     name,
		Language: types.LanguageRego,
		Body:     RenderRego(mod),
		Metadata: metadataFor(p, name),
	}, nil
}

// Module builds the IR for one policy.
func (t *Rego) Module(set *policybook.PolicySet, p *policybook.Policy) (*Module, error) {
	r := regoRenderer{}

	// Step 1: render the condition and exception bodies.
	cond, err := renderNode(r, p.Condition)
	if err != nil {
		return nil, err
	}
	exc, err := renderNode(r, p.Exception)
	if err != nil {
		return nil, err
	}

	mod := &Module{
		Package: &Package{Name: SanitizeName(p.Name)},
		Imports: regoImports,
	}

	// Step 2: metadata markers.
	meta := []Declaration{{Name: types.TargetMarker, Op: "=", Value: mustJSON(p.TargetType)}}
	if len(p.Tags) > 0 {
		meta = append(meta, Declaration{Name: types.TagsMarker, Op: "=", Value: mustJSON(p.Tags)})
	}
	mod.Declarations = append(mod.Declarations, meta)

	// Step 3: aliases for the namespace roots the policy refers to.
	used := usedRoots(p)
	var aliases []Declaration
	for _, a := range regoAliases {
		if used[a.root] {
			aliases = append(aliases, Declaration{Name: a.name, Op: ":=", Value: a.value})
		}
	}
	if len(aliases) > 0 {
		mod.Declarations = append(mod.Declarations, aliases)
	}

	// Step 4: variable declarations, in declaration order.
	var decls []Declaration
	for _, v := range set.Vars.All() {
		val, err := jsonText(v.Value)
		if err != nil {
			return nil, oops.Code(errutil.CodeUnsupportedOperator).With("variable", v.Name).Wrap(err)
		}
		decls = append(decls, Declaration{Name: v.Name, Op: "=", Value: val})
	}
	if len(decls) > 0 {
		mod.Declarations = append(mod.Declarations, decls)
	}

	// Step 5: one rule per action kind.
	seen := make(map[types.ActionKind]bool)
	for _, a := range p.Actions {
		if !regoActionKinds[a.Kind] {
			return nil, oops.Code(errutil.CodeUnsupportedOperator).
				With("action", string(a.Kind)).
				Errorf("%s is not a supported action", a.Kind)
		}
		if seen[a.Kind] {
			return nil, oops.Code(errutil.CodeUnsupportedOperator).
				With("action", string(a.Kind)).
				Errorf("action %s is declared more than once", a.Kind)
		}
		seen[a.Kind] = true

		var steps []string
		if cond != "" {
			steps = append(steps, cond)
		}
		if exc != "" {
			steps = append(steps, "not "+parenthesize(exc))
		}
		if a.Message != "" {
			steps = append(steps, RenderMessage(a.Message))
		}
		mod.Rules = append(mod.Rules, Rule{Kind: a.Kind, Steps: steps})
	}
	return mod, nil
}

var regoActionKinds = map[types.ActionKind]bool{
	types.ActionPermit: true,
	types.ActionForbid: true,
	types.ActionAllow:  true,
	types.ActionDeny:   true,
	types.ActionInfo:   true,
	types.ActionWarn:   true,
}

// RenderRego serializes a Rego module.
func RenderRego(m *Module) string {
	var b strings.Builder
	b.WriteString("package " + m.Package.Name + "\n")

	if len(m.Imports) > 0 {
		b.WriteString("\n")
		for _, imp := range m.Imports {
			b.WriteString("import " + imp.Path + "\n")
		}
	}

	for _, group := range m.Declarations {
		b.WriteString("\n")
		for _, d := range group {
			b.WriteString(d.Name + " " + d.Op + " " + d.Value + "\n")
		}
	}

	for _, r := range m.Rules {
		b.WriteString("\n" + string(r.Kind) + " = true if {\n")
		for _, s := range r.Steps {
			b.WriteString("    " + s + "\n")
		}
		b.WriteString("} else = false\n")
	}
	return b.String()
}

// usedRoots reports the namespace roots referenced by the condition, the
// exception and the message placeholders of p.
func usedRoots(p *policybook.Policy) map[dsl.Root]bool {
	used := make(map[dsl.Root]bool)
	collectRoots(p.Condition, used)
	collectRoots(p.Exception, used)
	for _, a := range p.Actions {
		for _, arg := range messageArgs(a.Message) {
			for _, alias := range regoAliases {
				if strings.Contains(arg, alias.name+".") || strings.Contains(arg, alias.name+"[") {
					used[alias.root] = true
				}
			}
		}
	}
	return used
}

func collectRoots(n *dsl.Node, used map[dsl.Root]bool) {
	if n == nil {
		return
	}
	switch {
	case n.Ref != nil:
		used[n.Ref.Root] = true
	case n.List != nil:
		for _, c := range n.List {
			collectRoots(c, used)
		}
	case n.Compare != nil:
		collectRoots(n.Compare.LHS, used)
		collectRoots(n.Compare.RHS, used)
	case n.Membership != nil:
		collectRoots(n.Membership.LHS, used)
		collectRoots(n.Membership.RHS, used)
	case n.Search != nil:
		collectRoots(n.Search.LHS, used)
	case n.Select != nil:
		collectRoots(n.Select.LHS, used)
		collectRoots(n.Select.Value, used)
	case n.Binary != nil:
		collectRoots(n.Binary.LHS, used)
		collectRoots(n.Binary.RHS, used)
	case n.NAry != nil:
		for _, c := range n.NAry.Children {
			collectRoots(c, used)
		}
	case n.Negate != nil:
		collectRoots(n.Negate, used)
	case n.Defined != nil:
		collectRoots(n.Defined.Operand, used)
	}
}

// mustJSON encodes strings and string lists, which cannot fail.
func mustJSON(v any) string {
	s, err := jsonText(v)
	if err != nil {
		panic(err)
	}
	return s
}
