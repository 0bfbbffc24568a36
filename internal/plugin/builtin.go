// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package plugin

import (
	"github.com/ansible/ansible-policy/internal/engine"
	"github.com/ansible/ansible-policy/internal/input"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
	"github.com/ansible/ansible-policy/internal/result"
)

// CedarName is the built-in Cedar plugin.
const CedarName = "cedar"

// BuiltinOptions configures the built-in components.
type BuiltinOptions struct {
	// Engine options shared by both engines (runner, emitter, logger).
	Engine []engine.Option
	// OPA and Cedar override the backend executables when non-empty.
	OPA   string
	Cedar string
	// VerifyCedar parses generated Cedar text with cedar-go before use.
	VerifyCedar bool
}

// NewRegoEngine builds the Rego engine with opts applied.
func (o BuiltinOptions) NewRegoEngine(extra ...engine.Option) engine.Engine {
	eopts := append(append([]engine.Option{}, o.Engine...), extra...)
	if o.OPA != "" {
		eopts = append(eopts, engine.WithExecutable(o.OPA))
	}
	return engine.NewRego(eopts...)
}

// NewCedarEngine builds the Cedar engine with opts applied.
func (o BuiltinOptions) NewCedarEngine(extra ...engine.Option) engine.Engine {
	eopts := append(append([]engine.Option{}, o.Engine...), extra...)
	if o.Cedar != "" {
		eopts = append(eopts, engine.WithExecutable(o.Cedar))
	}
	return engine.NewCedar(eopts...)
}

// NewCedarTranspiler builds the Cedar transpiler with opts applied.
func (o BuiltinOptions) NewCedarTranspiler() transpile.Transpiler {
	if o.VerifyCedar {
		return transpile.NewCedar(transpile.WithVerify())
	}
	return transpile.NewCedar()
}

// Builtins returns the default Rego plugin and the Cedar plugin.
func Builtins(opts BuiltinOptions) []*Plugin {
	return []*Plugin{
		{
			Name:       DefaultName,
			Engine:     opts.NewRegoEngine(),
			Transpiler: transpile.NewRego(),
			Summarizer: result.DefaultSummarizer{},
		},
		{
			Name:       CedarName,
			Engine:     opts.NewCedarEngine(),
			Transpiler: opts.NewCedarTranspiler(),
			InputTypes: map[string]input.Constructor{input.TypeCedar: input.CedarConstructor},
		},
	}
}
