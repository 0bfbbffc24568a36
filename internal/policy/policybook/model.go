// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package policybook loads policy book documents: named policy sets whose
// policies pair a condition with one or more actions.
package policybook

import (
	"github.com/ansible/ansible-policy/internal/policy/dsl"
	"github.com/ansible/ansible-policy/internal/policy/types"
)

// PolicySet is one document entry of a policy book.
type PolicySet struct {
	Name                  string
	Hosts                 []string
	Vars                  *dsl.Vars
	Policies              []*Policy
	MatchMultiplePolicies bool
}

// Policy is a named rule bound to one target type.
type Policy struct {
	Name       string
	TargetType string
	Tags       []string
	Enabled    bool
	Condition  *dsl.Node
	Exception  *dsl.Node
	Actions    []*Action
}

// Action is the verdict emitted when a policy condition holds.
type Action struct {
	Kind      types.ActionKind
	Principal Matcher
	Action    Matcher
	Resource  Matcher
	Message   string
}

// bookActionKinds are the action kinds a policy book may declare.
var bookActionKinds = map[types.ActionKind]bool{
	types.ActionPermit: true,
	types.ActionForbid: true,
	types.ActionAllow:  true,
	types.ActionDeny:   true,
	types.ActionInfo:   true,
	types.ActionWarn:   true,
}
