// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import (
	"strings"

	"github.com/ansible/ansible-policy/internal/policy/dsl"
)

// regoRenderer spells conditions for the Rego backend.
type regoRenderer struct{}

var _ Renderer = regoRenderer{}

func (regoRenderer) Literal(l *dsl.Literal) (string, error) {
	if l.Kind == dsl.LitString {
		return jsonText(l.Str)
	}
	return l.String(), nil
}

func (regoRenderer) Ref(r *dsl.FieldRef) (string, error) {
	return r.Path, nil
}

func (regoRenderer) List(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func (regoRenderer) Connective(op dsl.Connective, parts []string) string {
	if op == dsl.Or {
		return joinConnective(parts, " || ")
	}
	return joinConnective(parts, " && ")
}

func (regoRenderer) Compare(c *dsl.Comparison, lhs, rhs string) (string, error) {
	return lhs + " " + c.Op.Symbol() + " " + rhs, nil
}

func (regoRenderer) Membership(m *dsl.Membership, lhs, rhs string) (string, error) {
	var expr string
	switch m.Op {
	case dsl.OpItemInList, dsl.OpItemNotInList:
		expr = lhs + " in " + rhs
	case dsl.OpListContains, dsl.OpListNotContains:
		expr = rhs + " in " + lhs
	case dsl.OpKeyInDict, dsl.OpKeyNotInDict:
		expr = rhs + " in object.keys(" + lhs + ")"
	}
	if m.Op.Negated() {
		return "not (" + expr + ")", nil
	}
	return expr, nil
}

func (regoRenderer) Search(s *dsl.Search, lhs string) (string, error) {
	pattern, err := jsonText(searchPattern(s))
	if err != nil {
		return "", err
	}
	expr := "regex.match(" + pattern + ", " + lhs + ")"
	if s.Negated {
		return "not " + expr, nil
	}
	return expr, nil
}

// searchPattern folds the search options into inline flags. Match is
// anchored at the start of the subject.
func searchPattern(s *dsl.Search) string {
	var flags string
	if v, ok := s.Option("ignorecase"); ok && v.Kind == dsl.LitBool && v.Bool {
		flags += "i"
	}
	if v, ok := s.Option("multiline"); ok && v.Kind == dsl.LitBool && v.Bool {
		flags += "m"
	}
	pattern := s.Pattern
	if s.Kind == dsl.SearchMatch && !strings.HasPrefix(pattern, "^") {
		pattern = "^" + pattern
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	return pattern
}

func (regoRenderer) Select(s *dsl.Selection, lhs, value string) (string, error) {
	item := "item"
	if s.Attr {
		item = "item." + s.Key
	}

	var test string
	switch s.Operator {
	case "regex", "search":
		test = "regex.match(" + value + ", " + item + ")"
	case "match":
		test = `regex.match(concat("", ["^", ` + value + `]), ` + item + ")"
	case "in":
		test = item + " in " + value
	case "not in":
		test = "not " + item + " in " + value
	case "contains":
		test = value + " in " + item
	case "not contains":
		test = "not " + value + " in " + item
	default:
		test = item + " " + s.Operator + " " + value
	}

	expr := "count([item | some item in " + lhs + "; " + test + "])"
	if s.Negated {
		return expr + " == 0", nil
	}
	return expr + " > 0", nil
}

func (regoRenderer) Negate(operand *dsl.Node, inner string) string {
	if operand.IsAtomic() {
		return "not " + inner
	}
	return "not " + parenthesize(inner)
}

func (regoRenderer) Defined(d *dsl.Defined, operand string) (string, error) {
	if d.Negated {
		return "not " + operand, nil
	}
	return operand, nil
}
