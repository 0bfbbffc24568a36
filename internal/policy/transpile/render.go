// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/policy/dsl"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// Renderer spells one node family in a backend language. Operand strings
// are already rendered by the dispatcher.
type Renderer interface {
	Literal(l *dsl.Literal) (string, error)
	Ref(r *dsl.FieldRef) (string, error)
	List(items []string) string
	Connective(op dsl.Connective, parts []string) string
	Compare(c *dsl.Comparison, lhs, rhs string) (string, error)
	Membership(m *dsl.Membership, lhs, rhs string) (string, error)
	Search(s *dsl.Search, lhs string) (string, error)
	Select(s *dsl.Selection, lhs, value string) (string, error)
	Negate(operand *dsl.Node, inner string) string
	Defined(d *dsl.Defined, operand string) (string, error)
}

// Render renders n with r. A nil node renders as the empty expression.
func Render(r Renderer, n *dsl.Node) (string, error) {
	return renderNode(r, n)
}

// renderNode walks n. Connectives are matched first (binary, then list
// forms), then comparisons, then the remaining leaf-like forms.
func renderNode(r Renderer, n *dsl.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	switch {
	case n.Binary != nil:
		lhs, err := renderNode(r, n.Binary.LHS)
		if err != nil {
			return "", err
		}
		rhs, err := renderNode(r, n.Binary.RHS)
		if err != nil {
			return "", err
		}
		return r.Connective(n.Binary.Op, []string{lhs, rhs}), nil

	case n.NAry != nil:
		parts, err := renderAll(r, n.NAry.Children)
		if err != nil {
			return "", err
		}
		return r.Connective(n.NAry.Op, parts), nil

	case n.Compare != nil:
		lhs, rhs, err := renderPair(r, n.Compare.LHS, n.Compare.RHS)
		if err != nil {
			return "", err
		}
		return r.Compare(n.Compare, lhs, rhs)

	case n.Literal != nil:
		return r.Literal(n.Literal)

	case n.Ref != nil:
		return r.Ref(n.Ref)

	case n.List != nil:
		items, err := renderAll(r, n.List)
		if err != nil {
			return "", err
		}
		return r.List(items), nil

	case n.Membership != nil:
		lhs, rhs, err := renderPair(r, n.Membership.LHS, n.Membership.RHS)
		if err != nil {
			return "", err
		}
		return r.Membership(n.Membership, lhs, rhs)

	case n.Search != nil:
		lhs, err := renderNode(r, n.Search.LHS)
		if err != nil {
			return "", err
		}
		return r.Search(n.Search, lhs)

	case n.Select != nil:
		lhs, value, err := renderPair(r, n.Select.LHS, n.Select.Value)
		if err != nil {
			return "", err
		}
		return r.Select(n.Select, lhs, value)

	case n.Negate != nil:
		inner, err := renderNode(r, n.Negate)
		if err != nil {
			return "", err
		}
		return r.Negate(n.Negate, inner), nil

	case n.Defined != nil:
		operand, err := renderNode(r, n.Defined.Operand)
		if err != nil {
			return "", err
		}
		return r.Defined(n.Defined, operand)
	}
	return "", nil
}

func renderAll(r Renderer, nodes []*dsl.Node) ([]string, error) {
	out := make([]string, 0, len(nodes))
	for _, c := range nodes {
		s, err := renderNode(r, c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func renderPair(r Renderer, a, b *dsl.Node) (string, string, error) {
	sa, err := renderNode(r, a)
	if err != nil {
		return "", "", err
	}
	sb, err := renderNode(r, b)
	if err != nil {
		return "", "", err
	}
	return sa, sb, nil
}

// joinConnective wraps parts in one pair of parentheses.
func joinConnective(parts []string, sep string) string {
	return "(" + strings.Join(parts, sep) + ")"
}

// parenthesize wraps s in parentheses unless one pair already encloses
// all of it. Quoted strings are skipped.
func parenthesize(s string) string {
	if enclosed(s) {
		return s
	}
	return "(" + s + ")"
}

func enclosed(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// jsonText encodes v as compact JSON without HTML escaping.
func jsonText(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding %v: %w", v, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func unsupported(backend, what string) error {
	return oops.Code(errutil.CodeUnsupportedOperator).
		With("backend", backend).
		With("construct", what).
		Errorf("%s cannot express %s", backend, what)
}
