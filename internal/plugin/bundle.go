// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package plugin

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/config"
	"github.com/ansible/ansible-policy/internal/input"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/internal/result"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// LoadBundle reads dir/plugin.yaml and assembles a Plugin from the
// built-in components it selects.
func LoadBundle(dir string, opts BuiltinOptions) (*Plugin, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path) //nolint:gosec // bundle dir comes from configuration
	if err != nil {
		code := errutil.CodeConfigInvalid
		if errors.Is(err, fs.ErrNotExist) {
			code = errutil.CodeMissingPlugin
		}
		return nil, oops.Code(code).With("path", path).Wrapf(err, "reading plugin manifest")
	}

	if err := ValidateSchema(data); err != nil {
		return nil, oops.Code(errutil.CodeConfigInvalid).
			With("path", path).
			Errorf("invalid plugin manifest: %s", FormatSchemaError(err))
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, oops.Code(errutil.CodeConfigInvalid).With("path", path).Wrapf(err, "invalid plugin manifest")
	}
	return m.Plugin(opts), nil
}

// Plugin assembles the capabilities the manifest selects.
func (m *Manifest) Plugin(opts BuiltinOptions) *Plugin {
	p := &Plugin{Name: m.Name}

	if m.Engine != nil {
		o := opts
		switch m.Engine.Type {
		case types.LanguageRego:
			if m.Engine.Executable != "" {
				o.OPA = m.Engine.Executable
			}
			p.Engine = o.NewRegoEngine()
		case types.LanguageCedar:
			if m.Engine.Executable != "" {
				o.Cedar = m.Engine.Executable
			}
			p.Engine = o.NewCedarEngine()
		}
	}

	switch m.Transpiler {
	case types.LanguageRego:
		p.Transpiler = transpile.NewRego()
	case types.LanguageCedar:
		p.Transpiler = opts.NewCedarTranspiler()
	}

	if m.Summarizer == DefaultName {
		p.Summarizer = result.DefaultSummarizer{}
	}

	if len(m.InputTypes) > 0 {
		p.InputTypes = make(map[string]input.Constructor, len(m.InputTypes))
		for _, it := range m.InputTypes {
			ctor := input.DefaultConstructor
			if it.Format == InputFormatCedar {
				ctor = input.CedarConstructor
			}
			p.InputTypes[it.Name] = ctor
		}
	}
	return p
}

// LoadConfigured loads every bundle named in the configuration file. The
// manifest name must match the configured name.
func LoadConfigured(refs []config.PluginRef, opts BuiltinOptions) ([]*Plugin, error) {
	out := make([]*Plugin, 0, len(refs))
	for _, ref := range refs {
		p, err := LoadBundle(ref.Dir, opts)
		if err != nil {
			return nil, oops.With("plugin", ref.Name).Wrap(err)
		}
		if p.Name != ref.Name {
			return nil, oops.Code(errutil.CodeConfigInvalid).
				With("plugin", ref.Name).
				With("dir", ref.Dir).
				Errorf("plugin %q is configured as %q", p.Name, ref.Name)
		}
		out = append(out, p)
	}
	return out, nil
}
