// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ansible/ansible-policy/internal/policy/dsl"
)

// cedarRenderer spells conditions for the Cedar backend. Cedar has no
// variable declarations, so bound variables are inlined as literals.
type cedarRenderer struct {
	vars *dsl.Vars
}

var _ Renderer = cedarRenderer{}

func (cedarRenderer) Literal(l *dsl.Literal) (string, error) {
	if l.Kind == dsl.LitString {
		return jsonText(l.Str)
	}
	return l.String(), nil
}

func (c cedarRenderer) Ref(r *dsl.FieldRef) (string, error) {
	if r.Root != dsl.RootVariable {
		return r.Path, nil
	}
	root, segs, err := splitPath(r.Path)
	if err != nil {
		return "", err
	}
	v, ok := c.vars.Lookup(root)
	if !ok {
		return "", fmt.Errorf("variable %q is not bound", root)
	}
	lit, err := cedarValue(v)
	if err != nil {
		return "", fmt.Errorf("variable %q: %w", root, err)
	}
	var b strings.Builder
	b.WriteString(lit)
	for _, s := range segs {
		b.WriteString(s.raw)
	}
	return b.String(), nil
}

// cedarValue renders a variable value as a Cedar literal.
func cedarValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return jsonText(val)
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, err := cedarValue(item)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]string, 0, len(keys))
		for _, k := range keys {
			s, err := cedarValue(val[k])
			if err != nil {
				return "", err
			}
			key, err := jsonText(k)
			if err != nil {
				return "", err
			}
			fields = append(fields, key+": "+s)
		}
		return "{" + strings.Join(fields, ", ") + "}", nil
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}

func (cedarRenderer) List(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func (cedarRenderer) Connective(op dsl.Connective, parts []string) string {
	if op == dsl.Or {
		return joinConnective(parts, "||\n    ")
	}
	return joinConnective(parts, "&&\n    ")
}

func (cedarRenderer) Compare(c *dsl.Comparison, lhs, rhs string) (string, error) {
	if b := c.RHS.Literal; b != nil && b.Kind == dsl.LitBool {
		switch c.Op {
		case dsl.OpEquals:
			return lhs + " == " + strconv.FormatBool(b.Bool), nil
		case dsl.OpNotEquals:
			return lhs + " == " + strconv.FormatBool(!b.Bool), nil
		}
	}
	return lhs + " " + c.Op.Symbol() + " " + rhs, nil
}

func (cedarRenderer) Membership(m *dsl.Membership, lhs, rhs string) (string, error) {
	var expr string
	switch m.Op {
	case dsl.OpItemInList, dsl.OpItemNotInList:
		expr = rhs + ".contains(" + lhs + ")"
	case dsl.OpListContains, dsl.OpListNotContains:
		expr = lhs + ".contains(" + rhs + ")"
	case dsl.OpKeyInDict, dsl.OpKeyNotInDict:
		if m.RHS.Literal == nil || m.RHS.Literal.Kind != dsl.LitString {
			return "", unsupported("cedar", "a dynamic key in a has test")
		}
		expr = lhs + " has " + rhs
	}
	if m.Op.Negated() {
		return "!(" + expr + ")", nil
	}
	return expr, nil
}

func (cedarRenderer) Search(s *dsl.Search, _ string) (string, error) {
	return "", unsupported("cedar", string(s.Kind)+"()")
}

func (cedarRenderer) Select(s *dsl.Selection, _, _ string) (string, error) {
	if s.Attr {
		return "", unsupported("cedar", "selectattr()")
	}
	return "", unsupported("cedar", "select()")
}

func (cedarRenderer) Negate(operand *dsl.Node, inner string) string {
	if operand.IsAtomic() {
		return "!" + inner
	}
	return "!" + parenthesize(inner)
}

// Defined renders `parent has attr` for the last accessor of a field path.
func (cedarRenderer) Defined(d *dsl.Defined, _ string) (string, error) {
	ref := d.Operand.Ref
	if ref == nil || ref.Root == dsl.RootVariable {
		return "", unsupported("cedar", "is defined on a non-field operand")
	}
	root, segs, err := splitPath(ref.Path)
	if err != nil {
		return "", err
	}
	if len(segs) == 0 {
		return "", unsupported("cedar", "is defined on a namespace root")
	}
	last := segs[len(segs)-1]
	if last.index {
		return "", unsupported("cedar", "is defined on a list index")
	}

	var parent strings.Builder
	parent.WriteString(root)
	for _, s := range segs[:len(segs)-1] {
		parent.WriteString(s.raw)
	}
	attr := last.name
	if strings.HasPrefix(last.raw, "[") {
		q, err := jsonText(last.name)
		if err != nil {
			return "", err
		}
		attr = q
	}

	expr := parent.String() + " has " + attr
	if d.Negated {
		return "!(" + expr + ")", nil
	}
	return expr, nil
}
