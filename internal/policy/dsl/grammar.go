// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package dsl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// conditionLexer tokenizes condition expressions. Keywords (and, or, not,
// in, is, ...) are lexed as Ident and matched by value in the grammar.
// Strings keep their quotes so field paths can be reproduced verbatim.
var conditionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Float", Pattern: `-?\d+\.\d+`},
	{Name: "Int", Pattern: `-?\d+`},
	{Name: "Op", Pattern: `==|!=|<=|>=|<|>`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[()\[\],.=]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// expression is the grammar root.
//
// Grammar: conjunction ( "or" conjunction )*
type expression struct {
	Pos lexer.Position `parser:""`
	Or  []*conjunction `parser:"@@ ( 'or' @@ )*"`
}

// conjunction binds tighter than "or".
type conjunction struct {
	Pos lexer.Position `parser:""`
	And []*unary       `parser:"@@ ( 'and' @@ )*"`
}

// unary is a negation, a parenthesized group, or a predicate.
type unary struct {
	Pos       lexer.Position `parser:""`
	Not       *unary         `parser:"  'not' @@"`
	Group     *expression    `parser:"| '(' @@ ')'"`
	Predicate *predicate     `parser:"| @@"`
}

// predicate is an operand optionally followed by an operator suffix.
type predicate struct {
	Pos     lexer.Position `parser:""`
	Operand *value         `parser:"@@"`
	Suffix  *suffix        `parser:"@@?"`
}

type suffix struct {
	Pos     lexer.Position `parser:""`
	Compare *compareSuffix `parser:"  @@"`
	Member  *memberSuffix  `parser:"| @@"`
	Key     *keySuffix     `parser:"| @@"`
	Is      *isSuffix      `parser:"| @@"`
}

type compareSuffix struct {
	Op  string `parser:"@Op"`
	RHS *value `parser:"@@"`
}

// memberSuffix covers "[not] in" and "[not] contains".
type memberSuffix struct {
	Not bool   `parser:"@'not'?"`
	Op  string `parser:"@( 'in' | 'contains' )"`
	RHS *value `parser:"@@"`
}

// keySuffix covers "has key" and "lacks key".
type keySuffix struct {
	Op  string `parser:"@( 'has' | 'lacks' ) 'key'"`
	RHS *value `parser:"@@"`
}

type isSuffix struct {
	Not        bool            `parser:"'is' @'not'?"`
	Defined    bool            `parser:"( @'defined'"`
	Search     *searchCall     `parser:"| @@"`
	Select     *selectCall     `parser:"| @@"`
	SelectAttr *selectAttrCall `parser:"| @@ )"`
}

type searchCall struct {
	Pos     lexer.Position  `parser:""`
	Kind    string          `parser:"@( 'match' | 'search' | 'regex' ) '('"`
	Pattern string          `parser:"@String"`
	Options []*searchOption `parser:"( ',' @@ )* ')'"`
}

type searchOption struct {
	Name  string `parser:"@Ident '='"`
	Value *value `parser:"@@"`
}

type selectCall struct {
	Pos      lexer.Position `parser:""`
	Operator string         `parser:"'select' '(' @String ','"`
	Value    *value         `parser:"@@ ')'"`
}

type selectAttrCall struct {
	Pos      lexer.Position `parser:""`
	Key      string         `parser:"'selectattr' '(' @String ','"`
	Operator string         `parser:"@String ','"`
	Value    *value         `parser:"@@ ')'"`
}

// value is a literal, a list literal, or a reference.
type value struct {
	Pos   lexer.Position `parser:""`
	Float *string        `parser:"  @Float"`
	Int   *string        `parser:"| @Int"`
	Str   *string        `parser:"| @String"`
	Bool  *string        `parser:"| @( 'true' | 'false' | 'True' | 'False' )"`
	Null  bool           `parser:"| @'null'"`
	List  *listValue     `parser:"| @@"`
	Ref   *reference     `parser:"| @@"`
}

type listValue struct {
	Items []*value `parser:"'[' ( @@ ( ',' @@ )* ','? )? ']'"`
}

// reference is a root identifier followed by field and subscript accessors.
type reference struct {
	Pos       lexer.Position `parser:""`
	Root      string         `parser:"@Ident"`
	Accessors []*accessor    `parser:"@@*"`
}

type accessor struct {
	Field     string  `parser:"  '.' @Ident"`
	Subscript *string `parser:"| '[' @( String | Int ) ']'"`
}

// newParser constructs the participle parser for condition expressions.
func newParser() (*participle.Parser[expression], error) {
	return participle.Build[expression](
		participle.Lexer(conditionLexer),
		participle.UseLookahead(4),
	)
}
