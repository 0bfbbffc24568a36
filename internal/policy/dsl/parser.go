// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package dsl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/pkg/errutil"
)

// MaxNestingDepth is the maximum allowed nesting depth for conditions.
const MaxNestingDepth = 32

// parser is the singleton participle parser instance.
var parser *participle.Parser[expression]

func init() {
	var err error
	parser, err = newParser()
	if err != nil {
		panic(fmt.Sprintf("failed to build condition parser: %v", err))
	}
}

// selectOperators are the operators accepted by select().
var selectOperators = map[string]bool{
	"==": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
	"regex": true, "search": true, "match": true,
}

// selectAttrOperators are the operators accepted by selectattr().
var selectAttrOperators = map[string]bool{
	"==": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
	"regex": true, "search": true, "match": true,
	"in": true, "not in": true, "contains": true, "not contains": true,
}

// Parse parses a condition expression. Bare identifiers must be bound in
// vars; a nil vars is treated as an empty table.
func Parse(expr string, vars *Vars) (*Node, error) {
	tree, err := parser.ParseString("", expr)
	if err != nil {
		return nil, syntaxError(expr, err)
	}

	l := &lowerer{expr: expr, vars: vars}
	node, err := l.expression(tree, 0)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// MustParse is Parse for expressions known to be valid. It panics on error.
func MustParse(expr string, vars *Vars) *Node {
	n, err := Parse(expr, vars)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseError describes malformed condition text.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func syntaxError(expr string, err error) error {
	pe := &ParseError{Line: 1, Column: 1, Message: err.Error()}
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		pe = &ParseError{Line: pos.Line, Column: pos.Column, Message: perr.Message()}
	}
	return oops.Code(errutil.CodeParse).
		With("expression", expr).
		Wrapf(pe, "parsing condition")
}

// lowerer turns the participle parse tree into Nodes.
type lowerer struct {
	expr string
	vars *Vars
}

func (l *lowerer) fail(format string, args ...any) error {
	pe := &ParseError{Line: 1, Column: 1, Message: fmt.Sprintf(format, args...)}
	return oops.Code(errutil.CodeParse).With("expression", l.expr).Wrapf(pe, "parsing condition")
}

func (l *lowerer) checkDepth(depth int) error {
	if depth > MaxNestingDepth {
		return l.fail("nesting depth exceeds maximum of %d", MaxNestingDepth)
	}
	return nil
}

func (l *lowerer) expression(e *expression, depth int) (*Node, error) {
	if err := l.checkDepth(depth); err != nil {
		return nil, err
	}
	var out *Node
	for _, c := range e.Or {
		n, err := l.conjunction(c, depth)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = n
			continue
		}
		out = &Node{Binary: &Binary{Op: Or, LHS: out, RHS: n}}
	}
	return out, nil
}

func (l *lowerer) conjunction(c *conjunction, depth int) (*Node, error) {
	var out *Node
	for _, u := range c.And {
		n, err := l.unary(u, depth)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = n
			continue
		}
		out = &Node{Binary: &Binary{Op: And, LHS: out, RHS: n}}
	}
	return out, nil
}

func (l *lowerer) unary(u *unary, depth int) (*Node, error) {
	switch {
	case u.Not != nil:
		if err := l.checkDepth(depth + 1); err != nil {
			return nil, err
		}
		operand, err := l.unary(u.Not, depth+1)
		if err != nil {
			return nil, err
		}
		return &Node{Negate: operand}, nil
	case u.Group != nil:
		return l.expression(u.Group, depth+1)
	default:
		return l.predicate(u.Predicate)
	}
}

func (l *lowerer) predicate(p *predicate) (*Node, error) {
	lhs, err := l.value(p.Operand)
	if err != nil {
		return nil, err
	}
	s := p.Suffix
	if s == nil {
		return lhs, nil
	}

	switch {
	case s.Compare != nil:
		op, ok := compareOpFromSymbol(s.Compare.Op)
		if !ok {
			return nil, l.fail("unknown comparison operator %q", s.Compare.Op)
		}
		rhs, err := l.value(s.Compare.RHS)
		if err != nil {
			return nil, err
		}
		return Compare(op, lhs, rhs), nil

	case s.Member != nil:
		rhs, err := l.value(s.Member.RHS)
		if err != nil {
			return nil, err
		}
		if s.Member.Op == "in" {
			if rhs.List == nil && rhs.Ref == nil {
				return nil, l.fail("right side of %q must be a list or a reference", "in")
			}
			op := OpItemInList
			if s.Member.Not {
				op = OpItemNotInList
			}
			return &Node{Membership: &Membership{Op: op, LHS: lhs, RHS: rhs}}, nil
		}
		op := OpListContains
		if s.Member.Not {
			op = OpListNotContains
		}
		return &Node{Membership: &Membership{Op: op, LHS: lhs, RHS: rhs}}, nil

	case s.Key != nil:
		rhs, err := l.value(s.Key.RHS)
		if err != nil {
			return nil, err
		}
		op := OpKeyInDict
		if s.Key.Op == "lacks" {
			op = OpKeyNotInDict
		}
		return &Node{Membership: &Membership{Op: op, LHS: lhs, RHS: rhs}}, nil

	case s.Is != nil:
		return l.isTest(lhs, s.Is)
	}
	return nil, l.fail("empty operator suffix")
}

func (l *lowerer) isTest(lhs *Node, is *isSuffix) (*Node, error) {
	switch {
	case is.Defined:
		return &Node{Defined: &Defined{Operand: lhs, Negated: is.Not}}, nil

	case is.Search != nil:
		pattern, err := unquote(is.Search.Pattern)
		if err != nil {
			return nil, l.fail("%v", err)
		}
		search := &Search{Kind: SearchKind(is.Search.Kind), LHS: lhs, Pattern: pattern, Negated: is.Not}
		for _, o := range is.Search.Options {
			v, err := l.value(o.Value)
			if err != nil {
				return nil, err
			}
			if v.Literal == nil {
				return nil, l.fail("option %q of %s() must be a literal", o.Name, is.Search.Kind)
			}
			search.Options = append(search.Options, SearchOption{Name: o.Name, Value: v.Literal})
		}
		return &Node{Search: search}, nil

	case is.Select != nil:
		op, err := unquote(is.Select.Operator)
		if err != nil {
			return nil, l.fail("%v", err)
		}
		if !selectOperators[op] {
			return nil, oops.Code(errutil.CodeUnsupportedOperator).
				With("expression", l.expr).
				With("operator", op).
				Errorf("select operator %q is not supported", op)
		}
		v, err := l.value(is.Select.Value)
		if err != nil {
			return nil, err
		}
		return &Node{Select: &Selection{LHS: lhs, Operator: op, Value: v, Negated: is.Not}}, nil

	case is.SelectAttr != nil:
		key, err := unquote(is.SelectAttr.Key)
		if err != nil {
			return nil, l.fail("%v", err)
		}
		op, err := unquote(is.SelectAttr.Operator)
		if err != nil {
			return nil, l.fail("%v", err)
		}
		if !selectAttrOperators[op] {
			return nil, oops.Code(errutil.CodeUnsupportedOperator).
				With("expression", l.expr).
				With("operator", op).
				Errorf("selectattr operator %q is not supported", op)
		}
		v, err := l.value(is.SelectAttr.Value)
		if err != nil {
			return nil, err
		}
		return &Node{Select: &Selection{Attr: true, LHS: lhs, Key: key, Operator: op, Value: v, Negated: is.Not}}, nil
	}
	return nil, l.fail("empty is-test")
}

func (l *lowerer) value(v *value) (*Node, error) {
	switch {
	case v.Float != nil:
		f, err := strconv.ParseFloat(*v.Float, 64)
		if err != nil {
			return nil, l.fail("invalid float %s", *v.Float)
		}
		return Float(f), nil
	case v.Int != nil:
		i, err := strconv.ParseInt(*v.Int, 10, 64)
		if err != nil {
			return nil, l.fail("invalid integer %s", *v.Int)
		}
		return Int(i), nil
	case v.Str != nil:
		s, err := unquote(*v.Str)
		if err != nil {
			return nil, l.fail("%v", err)
		}
		return Str(s), nil
	case v.Bool != nil:
		return Bool(strings.EqualFold(*v.Bool, "true")), nil
	case v.Null:
		return Null(), nil
	case v.List != nil:
		items := make([]*Node, 0, len(v.List.Items))
		for _, item := range v.List.Items {
			n, err := l.value(item)
			if err != nil {
				return nil, err
			}
			items = append(items, n)
		}
		return &Node{List: items}, nil
	case v.Ref != nil:
		return l.reference(v.Ref)
	}
	return nil, l.fail("empty value")
}

func (l *lowerer) reference(r *reference) (*Node, error) {
	var path strings.Builder
	path.WriteString(r.Root)
	for _, a := range r.Accessors {
		if a.Subscript != nil {
			path.WriteString("[" + *a.Subscript + "]")
			continue
		}
		path.WriteString("." + a.Field)
	}

	if root, ok := rootByIdent[r.Root]; ok {
		return Ref(root, path.String()), nil
	}
	if _, ok := l.vars.Lookup(r.Root); ok {
		return Ref(RootVariable, path.String()), nil
	}
	return nil, oops.Code(errutil.CodeUnresolvedVariable).
		With("expression", l.expr).
		With("variable", r.Root).
		Errorf("variable %q is not defined", r.Root)
}

// unquote strips the quotes of a single- or double-quoted token and resolves
// the common escapes. Unknown escapes keep their backslash so regular
// expression patterns survive unchanged.
func unquote(raw string) (string, error) {
	if len(raw) < 2 || (raw[0] != '"' && raw[0] != '\'') || raw[len(raw)-1] != raw[0] {
		return "", fmt.Errorf("malformed string literal %s", raw)
	}
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, `\`) {
		return body, nil
	}

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch next := body[i]; next {
		case '\\', '"', '\'':
			b.WriteByte(next)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte('\\')
			b.WriteByte(next)
		}
	}
	return b.String(), nil
}
