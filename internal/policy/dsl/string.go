// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package dsl

import (
	"strconv"
	"strings"
)

// String renders the node back into condition syntax. Connectives are always
// parenthesized so the output reparses to an equivalent tree.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch {
	case n.Literal != nil:
		return n.Literal.String()
	case n.Ref != nil:
		return n.Ref.Path
	case n.List != nil:
		return listString(n.List)
	case n.Compare != nil:
		return n.Compare.LHS.String() + " " + n.Compare.Op.Symbol() + " " + n.Compare.RHS.String()
	case n.Membership != nil:
		return membershipString(n.Membership)
	case n.Search != nil:
		return searchString(n.Search)
	case n.Select != nil:
		return selectString(n.Select)
	case n.Binary != nil:
		return "(" + n.Binary.LHS.String() + " " + n.Binary.Op.String() + " " + n.Binary.RHS.String() + ")"
	case n.NAry != nil:
		parts := make([]string, len(n.NAry.Children))
		for i, c := range n.NAry.Children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " "+n.NAry.Op.String()+" ") + ")"
	case n.Negate != nil:
		inner := n.Negate
		if inner.IsAtomic() || inner.Binary != nil || inner.NAry != nil {
			return "not " + inner.String()
		}
		return "not (" + inner.String() + ")"
	case n.Defined != nil:
		if n.Defined.Negated {
			return n.Defined.Operand.String() + " is not defined"
		}
		return n.Defined.Operand.String() + " is defined"
	}
	return ""
}

func (l *Literal) String() string {
	switch l.Kind {
	case LitBool:
		return strconv.FormatBool(l.Bool)
	case LitInt:
		return strconv.FormatInt(l.Int, 10)
	case LitFloat:
		s := strconv.FormatFloat(l.Float, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s
	case LitString:
		return strconv.Quote(l.Str)
	default:
		return "null"
	}
}

func listString(items []*Node) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func membershipString(m *Membership) string {
	var op string
	switch m.Op {
	case OpItemInList:
		op = "in"
	case OpItemNotInList:
		op = "not in"
	case OpListContains:
		op = "contains"
	case OpListNotContains:
		op = "not contains"
	case OpKeyInDict:
		op = "has key"
	case OpKeyNotInDict:
		op = "lacks key"
	}
	return m.LHS.String() + " " + op + " " + m.RHS.String()
}

func isPrefix(lhs *Node, negated bool) string {
	if negated {
		return lhs.String() + " is not "
	}
	return lhs.String() + " is "
}

func searchString(s *Search) string {
	var b strings.Builder
	b.WriteString(isPrefix(s.LHS, s.Negated))
	b.WriteString(string(s.Kind))
	b.WriteString("(")
	b.WriteString(strconv.Quote(s.Pattern))
	for _, o := range s.Options {
		b.WriteString(", " + o.Name + "=" + o.Value.String())
	}
	b.WriteString(")")
	return b.String()
}

func selectString(s *Selection) string {
	if s.Attr {
		return isPrefix(s.LHS, s.Negated) + "selectattr(" + strconv.Quote(s.Key) + ", " +
			strconv.Quote(s.Operator) + ", " + s.Value.String() + ")"
	}
	return isPrefix(s.LHS, s.Negated) + "select(" + strconv.Quote(s.Operator) + ", " + s.Value.String() + ")"
}
