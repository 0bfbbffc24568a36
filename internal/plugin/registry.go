// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package plugin

import (
	"sort"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/engine"
	"github.com/ansible/ansible-policy/internal/input"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/internal/result"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// Registry resolves capabilities by target type. It is read-only once built.
type Registry struct {
	plugins    map[string]*Plugin
	def        *Plugin
	inputTypes map[string]input.Constructor
	inputOwner map[string]*Plugin
}

// NewRegistry validates plugins and indexes their input types. Exactly one
// plugin must be named "default" and it must provide an engine, a
// transpiler and a summarizer. When two plugins declare the same input type
// the later one wins.
func NewRegistry(plugins ...*Plugin) (*Registry, error) {
	r := &Registry{
		plugins:    make(map[string]*Plugin, len(plugins)),
		inputTypes: make(map[string]input.Constructor),
		inputOwner: make(map[string]*Plugin),
	}
	for _, p := range plugins {
		if p == nil || p.Name == "" {
			return nil, oops.Code(errutil.CodeMissingPlugin).Errorf("plugin name must not be empty")
		}
		if _, dup := r.plugins[p.Name]; dup {
			return nil, oops.Code(errutil.CodeMissingPlugin).
				With("plugin", p.Name).
				Errorf("plugin %q registered twice", p.Name)
		}
		r.plugins[p.Name] = p
		for name, ctor := range p.InputTypes {
			r.inputTypes[name] = ctor
			r.inputOwner[name] = p
		}
	}

	def, ok := r.plugins[DefaultName]
	if !ok {
		return nil, oops.Code(errutil.CodeMissingPlugin).
			With("plugin", DefaultName).
			Errorf("no %q plugin registered", DefaultName)
	}
	switch {
	case def.Engine == nil:
		return nil, missingCapability("engine")
	case def.Transpiler == nil:
		return nil, missingCapability("transpiler")
	case def.Summarizer == nil:
		return nil, missingCapability("summarizer")
	}
	r.def = def
	return r, nil
}

func missingCapability(what string) error {
	return oops.Code(errutil.CodeMissingPlugin).
		With("plugin", DefaultName).
		With("capability", what).
		Errorf("%q plugin has no %s", DefaultName, what)
}

// Resolve returns the plugin that declares targetType as an input type, or
// the default plugin.
func (r *Registry) Resolve(targetType string) *Plugin {
	if p, ok := r.inputOwner[targetType]; ok {
		return p
	}
	return r.def
}

// Engine returns the engine for targetType.
func (r *Registry) Engine(targetType string) engine.Engine {
	if e := r.Resolve(targetType).Engine; e != nil {
		return e
	}
	return r.def.Engine
}

// Transpiler returns the transpiler for targetType.
func (r *Registry) Transpiler(targetType string) transpile.Transpiler {
	if t := r.Resolve(targetType).Transpiler; t != nil {
		return t
	}
	return r.def.Transpiler
}

// EngineFor returns an engine for a policy already compiled to lang. The
// engine resolved for targetType is preferred, then the default plugin's,
// then the first plugin by name.
func (r *Registry) EngineFor(lang types.Language, targetType string) (engine.Engine, error) {
	if e := r.Engine(targetType); e.Language() == lang {
		return e, nil
	}
	if r.def.Engine.Language() == lang {
		return r.def.Engine, nil
	}
	for _, name := range r.Names() {
		if e := r.plugins[name].Engine; e != nil && e.Language() == lang {
			return e, nil
		}
	}
	return nil, oops.Code(errutil.CodeMissingPlugin).
		With("language", string(lang)).
		With("target_type", targetType).
		Errorf("no plugin provides a %s engine", lang)
}

// Summarizer returns the default plugin's summarizer.
func (r *Registry) Summarizer() result.Summarizer {
	return r.def.Summarizer
}

// InputType returns the constructor registered for name.
func (r *Registry) InputType(name string) (input.Constructor, bool) {
	c, ok := r.inputTypes[name]
	return c, ok
}

// InputTypes returns a copy of every registered input constructor.
func (r *Registry) InputTypes() map[string]input.Constructor {
	out := make(map[string]input.Constructor, len(r.inputTypes))
	for k, v := range r.inputTypes {
		out[k] = v
	}
	return out
}

// Get returns the plugin called name.
func (r *Registry) Get(name string) (*Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
