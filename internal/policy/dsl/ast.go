// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package dsl parses policy condition expressions into a typed AST.
//
// A Node is a tagged union: exactly one of its variant fields is set. The
// tree is finite, acyclic and never mutated after Parse returns, so the same
// tree can be handed to several code generators.
package dsl

import (
	"fmt"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/pkg/errutil"
)

// Node is one condition expression node. Exactly one field is non-nil.
type Node struct {
	Literal    *Literal    `json:"literal,omitempty"`
	Ref        *FieldRef   `json:"ref,omitempty"`
	List       []*Node     `json:"list,omitempty"`
	Compare    *Comparison `json:"compare,omitempty"`
	Membership *Membership `json:"membership,omitempty"`
	Search     *Search     `json:"search,omitempty"`
	Select     *Selection  `json:"select,omitempty"`
	Binary     *Binary     `json:"binary,omitempty"`
	NAry       *NAry       `json:"nary,omitempty"`
	Negate     *Node       `json:"negate,omitempty"`
	Defined    *Defined    `json:"defined,omitempty"`
}

// IsAtomic reports whether n renders without needing grouping parentheses.
func (n *Node) IsAtomic() bool {
	return n != nil && (n.Literal != nil || n.Ref != nil || n.List != nil)
}

// LiteralKind discriminates Literal values.
type LiteralKind int

// Literal kinds.
const (
	LitBool LiteralKind = iota
	LitInt
	LitFloat
	LitString
	LitNull
)

var literalKindNames = [...]string{"Boolean", "Integer", "Float", "String", "NullType"}

func (k LiteralKind) String() string {
	if int(k) < len(literalKindNames) {
		return literalKindNames[k]
	}
	return fmt.Sprintf("LiteralKind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k LiteralKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Literal is a constant value.
type Literal struct {
	Kind  LiteralKind `json:"kind"`
	Bool  bool        `json:"bool,omitempty"`
	Int   int64       `json:"int,omitempty"`
	Float float64     `json:"float,omitempty"`
	Str   string      `json:"str,omitempty"`
}

// Value returns the literal as a plain Go value.
func (l *Literal) Value() any {
	switch l.Kind {
	case LitBool:
		return l.Bool
	case LitInt:
		return l.Int
	case LitFloat:
		return l.Float
	case LitString:
		return l.Str
	default:
		return nil
	}
}

// Root is the namespace a field reference starts from.
type Root int

// Reference roots.
const (
	RootContext Root = iota
	RootPrincipal
	RootAction
	RootResource
	RootVariable
)

var rootNames = [...]string{"Context", "Principal", "Action", "Resource", "Variable"}

func (r Root) String() string {
	if int(r) < len(rootNames) {
		return rootNames[r]
	}
	return fmt.Sprintf("Root(%d)", int(r))
}

// MarshalText encodes the root by name.
func (r Root) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// rootByIdent maps the source identifiers of the four namespaces.
var rootByIdent = map[string]Root{
	"context":   RootContext,
	"principal": RootPrincipal,
	"action":    RootAction,
	"resource":  RootResource,
}

// FieldRef points into one of the request namespaces or at a bound variable.
// Path is the reference exactly as written, e.g. context.range["x"][1].
type FieldRef struct {
	Root Root   `json:"root"`
	Path string `json:"path"`
}

// CompareOp is a binary comparison operator.
type CompareOp int

// Comparison operators.
const (
	OpEquals CompareOp = iota
	OpNotEquals
	OpLessThan
	OpLessOrEqual
	OpGreaterThan
	OpGreaterOrEqual
)

var compareSymbols = [...]string{"==", "!=", "<", "<=", ">", ">="}

// Symbol returns the source spelling of the operator.
func (op CompareOp) Symbol() string {
	if int(op) < len(compareSymbols) {
		return compareSymbols[op]
	}
	return "?"
}

func (op CompareOp) String() string {
	return [...]string{"Equals", "NotEquals", "LessThan", "LessOrEqual", "GreaterThan", "GreaterOrEqual"}[op]
}

// MarshalText encodes the operator by name.
func (op CompareOp) MarshalText() ([]byte, error) { return []byte(op.String()), nil }

func compareOpFromSymbol(sym string) (CompareOp, bool) {
	for i, s := range compareSymbols {
		if s == sym {
			return CompareOp(i), true
		}
	}
	return 0, false
}

// Comparison is lhs <op> rhs.
type Comparison struct {
	Op  CompareOp `json:"op"`
	LHS *Node     `json:"lhs"`
	RHS *Node     `json:"rhs"`
}

// MembershipOp distinguishes the list and dict membership forms.
type MembershipOp int

// Membership operators.
const (
	OpItemInList MembershipOp = iota
	OpItemNotInList
	OpListContains
	OpListNotContains
	OpKeyInDict
	OpKeyNotInDict
)

func (op MembershipOp) String() string {
	return [...]string{
		"ItemInList", "ItemNotInList", "ListContains", "ListNotContains", "KeyInDict", "KeyNotInDict",
	}[op]
}

// MarshalText encodes the operator by name.
func (op MembershipOp) MarshalText() ([]byte, error) { return []byte(op.String()), nil }

// Negated reports whether op is the negative form of its pair.
func (op MembershipOp) Negated() bool {
	return op == OpItemNotInList || op == OpListNotContains || op == OpKeyNotInDict
}

// Membership is an in / contains / has-key test. For the list forms RHS is
// a List node or a reference; for the other forms it is a scalar.
type Membership struct {
	Op  MembershipOp `json:"op"`
	LHS *Node        `json:"lhs"`
	RHS *Node        `json:"rhs"`
}

// SearchKind is the regular-expression flavour of a search test.
type SearchKind string

// Search kinds. Match is anchored at the start, search and regex are not.
const (
	SearchMatch  SearchKind = "match"
	SearchSearch SearchKind = "search"
	SearchRegex  SearchKind = "regex"
)

// SearchOption is a name=value option such as ignorecase=true.
type SearchOption struct {
	Name  string   `json:"name"`
	Value *Literal `json:"value"`
}

// Search is `lhs is [not] <kind>(pattern, options...)`.
type Search struct {
	Kind    SearchKind     `json:"kind"`
	LHS     *Node          `json:"lhs"`
	Pattern string         `json:"pattern"`
	Options []SearchOption `json:"options,omitempty"`
	Negated bool           `json:"negated,omitempty"`
}

// Option returns the named option value, if present.
func (s *Search) Option(name string) (*Literal, bool) {
	for _, o := range s.Options {
		if o.Name == name {
			return o.Value, true
		}
	}
	return nil, false
}

// Selection is `lhs is [not] select(op, value)` or, when Attr is set,
// `lhs is [not] selectattr(key, op, value)`.
type Selection struct {
	Attr     bool   `json:"attr,omitempty"`
	LHS      *Node  `json:"lhs"`
	Key      string `json:"key,omitempty"`
	Operator string `json:"operator"`
	Value    *Node  `json:"value"`
	Negated  bool   `json:"negated,omitempty"`
}

// Connective is a boolean connective.
type Connective int

// Connectives.
const (
	And Connective = iota
	Or
)

func (c Connective) String() string {
	if c == Or {
		return "or"
	}
	return "and"
}

// MarshalText encodes the connective by name.
func (c Connective) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Binary is the two-operand form produced by the infix parser.
type Binary struct {
	Op  Connective `json:"op"`
	LHS *Node      `json:"lhs"`
	RHS *Node      `json:"rhs"`
}

// NAry is the list form (AllCondition / AnyCondition) used by policy books.
type NAry struct {
	Op       Connective `json:"op"`
	Children []*Node    `json:"children"`
}

// Defined is `operand is [not] defined`.
type Defined struct {
	Operand *Node `json:"operand"`
	Negated bool  `json:"negated,omitempty"`
}

// NewAll builds an AllCondition over one or more children.
func NewAll(children ...*Node) (*Node, error) {
	return newNAry(And, children)
}

// NewAny builds an AnyCondition over one or more children.
func NewAny(children ...*Node) (*Node, error) {
	return newNAry(Or, children)
}

func newNAry(op Connective, children []*Node) (*Node, error) {
	if len(children) == 0 {
		return nil, oops.Code(errutil.CodeParse).
			With("connective", op.String()).
			Errorf("%s condition requires at least one child", op)
	}
	for i, c := range children {
		if c == nil {
			return nil, oops.Code(errutil.CodeParse).
				With("connective", op.String()).
				With("child", i).
				Errorf("%s condition child %d is empty", op, i)
		}
	}
	return &Node{NAry: &NAry{Op: op, Children: children}}, nil
}

// Str returns a string literal node.
func Str(s string) *Node { return &Node{Literal: &Literal{Kind: LitString, Str: s}} }

// Int returns an integer literal node.
func Int(i int64) *Node { return &Node{Literal: &Literal{Kind: LitInt, Int: i}} }

// Float returns a float literal node.
func Float(f float64) *Node { return &Node{Literal: &Literal{Kind: LitFloat, Float: f}} }

// Bool returns a boolean literal node.
func Bool(b bool) *Node { return &Node{Literal: &Literal{Kind: LitBool, Bool: b}} }

// Null returns the null literal node.
func Null() *Node { return &Node{Literal: &Literal{Kind: LitNull}} }

// Ref returns a reference node.
func Ref(root Root, path string) *Node { return &Node{Ref: &FieldRef{Root: root, Path: path}} }

// Context returns a reference to context.<field>.
func Context(field string) *Node { return Ref(RootContext, "context."+field) }

// Compare returns a comparison node.
func Compare(op CompareOp, lhs, rhs *Node) *Node {
	return &Node{Compare: &Comparison{Op: op, LHS: lhs, RHS: rhs}}
}
