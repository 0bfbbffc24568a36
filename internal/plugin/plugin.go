// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package plugin maps target types to the engine, transpiler, summarizer
// and input constructors that handle them.
package plugin

import (
	"github.com/ansible/ansible-policy/internal/engine"
	"github.com/ansible/ansible-policy/internal/input"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
	"github.com/ansible/ansible-policy/internal/result"
)

// DefaultName is the plugin every registry must contain.
const DefaultName = "default"

// Plugin is a set of optional capabilities. Nil fields fall back to the
// default plugin.
type Plugin struct {
	Name       string
	Engine     engine.Engine
	Transpiler transpile.Transpiler
	Summarizer result.Summarizer
	InputTypes map[string]input.Constructor
}
