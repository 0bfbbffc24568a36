// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ansible/ansible-policy/internal/engine"
	"github.com/ansible/ansible-policy/internal/loader"
)

// EvalDeps contains injectable dependencies for the eval command.
// All fields with nil values will use their default implementations.
type EvalDeps struct {
	// Runner executes opa, cedar and ansible-galaxy.
	// Default: engine.ExecRunner
	Runner engine.Runner

	// Cloner fetches git policy sources.
	// Default: loader.GitCloner
	Cloner loader.Cloner

	// Gatherer is written to the metrics textfile.
	// Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
}

func (d *EvalDeps) defaults() {
	if d.Runner == nil {
		d.Runner = engine.ExecRunner{}
	}
	if d.Cloner == nil {
		d.Cloner = loader.GitCloner{}
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
}

// TranspileDeps contains injectable dependencies for the transpile command.
type TranspileDeps struct {
	// Runner executes ansible-galaxy for galaxy sources.
	// Default: engine.ExecRunner
	Runner engine.Runner

	// Ready is called once the watcher is registered.
	Ready func()
}

func (d *TranspileDeps) defaults() {
	if d.Runner == nil {
		d.Runner = engine.ExecRunner{}
	}
	if d.Ready == nil {
		d.Ready = func() {}
	}
}
