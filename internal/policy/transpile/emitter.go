// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/policy/types"
)

// Emitter writes compiled policies to disk. Policies without an explicit
// destination go to a private scratch directory removed by Close.
type Emitter struct {
	mu      sync.Mutex
	base    string
	scratch string
}

// NewEmitter returns an emitter whose scratch directory is created under
// base. An empty base means os.TempDir().
func NewEmitter(base string) *Emitter {
	if base == "" {
		base = os.TempDir()
	}
	return &Emitter{base: base}
}

// Write stores p as dir/<name>.<ext> and records the path on p.
func (e *Emitter) Write(p *types.CompiledPolicy, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", oops.With("dir", dir).Wrapf(err, "creating output directory")
	}
	path := filepath.Join(dir, p.Name+"."+p.Language.Ext())
	if err := os.WriteFile(path, []byte(p.Body), 0o600); err != nil {
		return "", oops.With("path", path).Wrapf(err, "writing compiled policy")
	}
	p.Path = path
	return path, nil
}

// Ensure writes p to its own subdirectory of the scratch directory unless it
// already has a path. Policies sharing a name never share a file.
func (e *Emitter) Ensure(p *types.CompiledPolicy) (string, error) {
	if p.Path != "" {
		return p.Path, nil
	}
	dir, err := e.scratchDir()
	if err != nil {
		return "", err
	}
	return e.Write(p, filepath.Join(dir, ulid.Make().String()))
}

// ScratchFile writes data to a uniquely named file in the scratch directory.
// The file name is prefix-<ulid><ext>.
func (e *Emitter) ScratchFile(prefix, ext string, data []byte) (string, error) {
	dir, err := e.scratchDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, prefix+"-"+ulid.Make().String()+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", oops.With("path", path).Wrapf(err, "writing scratch file")
	}
	return path, nil
}

func (e *Emitter) scratchDir() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scratch != "" {
		return e.scratch, nil
	}
	dir := filepath.Join(e.base, "ansible-policy-"+ulid.Make().String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", oops.With("dir", dir).Wrapf(err, "creating scratch directory")
	}
	e.scratch = dir
	return dir, nil
}

// Close removes the scratch directory.
func (e *Emitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scratch == "" {
		return nil
	}
	dir := e.scratch
	e.scratch = ""
	if err := os.RemoveAll(dir); err != nil {
		return oops.With("dir", dir).Wrapf(err, "removing scratch directory")
	}
	return nil
}
