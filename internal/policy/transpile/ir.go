// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import "github.com/ansible/ansible-policy/internal/policy/types"

// Module is the typed form of one emitted policy file.
type Module struct {
	Package  *Package
	Imports  []Import
	Comments []Comment
	// Declarations are emitted in groups separated by a blank line.
	Declarations [][]Declaration
	Rules        []Rule
}

// Package names the module.
type Package struct {
	Name string
}

// Import is one import line.
type Import struct {
	Path string
}

// Comment is a `// key = value` header line.
type Comment struct {
	Key   string
	Value string
}

// Declaration binds Name to an already rendered Value. Op is "=" or ":=".
type Declaration struct {
	Name  string
	Op    string
	Value string
}

// Rule is one action rule. Steps are the body of a Rego rule; Blocks are the
// when/unless clauses of a Cedar statement.
type Rule struct {
	Kind      types.ActionKind
	Principal string
	Action    string
	Resource  string
	Steps     []string
	Blocks    []Block
}

// Block is a Cedar when or unless clause.
type Block struct {
	Keyword string
	Body    string
}

// Block keywords.
const (
	KeywordWhen   = "when"
	KeywordUnless = "unless"
)
