// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package config_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansible/ansible-policy/internal/config"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

func TestLoad(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "ansible-policy.cfg"))
	require.NoError(t, err)

	assert.Equal(t, []config.PolicyRule{
		{Name: "*", Enabled: false},
		{Name: "ansible.builtin", Enabled: true},
		{Name: "my_policies", Tags: []string{"security", "compliance"}, Enabled: true},
	}, cfg.Policies)

	assert.Equal(t, []config.Source{
		{Name: "ansible.builtin", Location: "ansible.builtin", Type: config.SourceGalaxy},
		{Name: "my_policies", Location: "./policies", Type: config.SourcePath},
		{Name: "remote", Location: "https://github.com/example/policies.git", Type: config.SourceGit},
		{Name: "bundle", Location: "./collections/bundle.tar.gz", Type: config.SourceGalaxy},
	}, cfg.Sources)

	assert.Equal(t, []config.PluginRef{{Name: "acme", Dir: "./plugins/acme"}}, cfg.Plugins)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join("testdata", "missing.cfg"))
	errutil.AssertErrorCode(t, err, errutil.CodeConfigInvalid)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"entry before section", "default enabled\n[policy]\n"},
		{"unknown section", "[policies]\ndefault enabled\n"},
		{"unknown source type", "[source]\nx = ./x type=svn\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse(strings.NewReader(tt.input))
			errutil.AssertErrorCode(t, err, errutil.CodeConfigInvalid)
		})
	}
}

func TestParse_TagSpacing(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("[policy]\nsrc tag = a enabled\n"))
	require.NoError(t, err)
	require.Len(t, cfg.Policies, 1)
	assert.Equal(t, []string{"a"}, cfg.Policies[0].Tags)
}

func TestDefaultSourceType(t *testing.T) {
	assert.Equal(t, config.SourcePath, config.DefaultSourceType("/abs/dir"))
	assert.Equal(t, config.SourceGalaxy, config.DefaultSourceType("ns.collection"))
	assert.Equal(t, config.SourceGalaxy, config.DefaultSourceType("dist/ns-col-1.0.0.tar.gz"))
}

func TestForPath(t *testing.T) {
	cfg := config.ForPath("/srv/policies")
	assert.Equal(t, []config.PolicyRule{{Name: "policy", Enabled: true}}, cfg.Policies)
	assert.Equal(t, []config.Source{{Name: "policy", Location: "/srv/policies", Type: config.SourcePath}}, cfg.Sources)
}
