// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package loader_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansible/ansible-policy/internal/config"
	"github.com/ansible/ansible-policy/internal/loader"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

func staticTags(byFile map[string][]string) loader.TagReader {
	return func(path string) ([]string, error) {
		return byFile[filepath.Base(path)], nil
	}
}

func mustPattern(t *testing.T, name string, enabled bool, tags ...string) *loader.PolicyPattern {
	t.Helper()
	p, err := loader.NewPolicyPattern(config.PolicyRule{Name: name, Tags: tags, Enabled: enabled})
	require.NoError(t, err)
	return p
}

func TestPolicyPattern_CheckEnabled(t *testing.T) {
	root := "/install"
	tags := staticTags(map[string][]string{"sec.rego": {"security"}})

	tests := []struct {
		name    string
		pattern *loader.PolicyPattern
		path    string
		want    *bool
	}{
		{"wildcard", mustPattern(t, "*", true), "/install/a/policies/x.yml", ptr(true)},
		{"exact name", mustPattern(t, "a", false), "/install/a/policies/x.yml", ptr(false)},
		{"other source", mustPattern(t, "b", true), "/install/a/policies/x.yml", nil},
		{"prefix glob", mustPattern(t, "ansible.*", true), "/install/ansible.builtin/policies/x.yml", ptr(true)},
		{"tag match", mustPattern(t, "*", true, "security"), "/install/a/policies/sec.rego", ptr(true)},
		{"tag mismatch", mustPattern(t, "*", true, "compliance"), "/install/a/policies/sec.rego", nil},
		{"untagged file", mustPattern(t, "*", true, "security"), "/install/a/policies/plain.rego", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pattern.CheckEnabled(root, tt.path, tags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_MostSpecificPatternWins(t *testing.T) {
	root := "/install"
	files := []string{
		"/install/ansible.builtin/policies/a.yml",
		"/install/mine/policies/b.yml",
		"/install/mine/policies/sec.yml",
		"/install/other/policies/c.yml",
	}
	patterns := []*loader.PolicyPattern{
		mustPattern(t, "*", false),
		mustPattern(t, "ansible.builtin", true),
		mustPattern(t, "mine", true, "security"),
	}
	tags := staticTags(map[string][]string{"sec.yml": {"security"}})

	got, err := loader.Resolve(root, files, patterns, tags)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/install/ansible.builtin/policies/a.yml",
		"/install/mine/policies/sec.yml",
	}, got)
}

func TestResolve_EqualLengthLastDeclaredWins(t *testing.T) {
	files := []string{"/r/abc/policies/x.yml"}

	got, err := loader.Resolve("/r", files, []*loader.PolicyPattern{
		mustPattern(t, "ab*", false),
		mustPattern(t, "a*c", true),
	}, staticTags(nil))
	require.NoError(t, err)
	assert.Equal(t, files, got)

	got, err = loader.Resolve("/r", files, []*loader.PolicyPattern{
		mustPattern(t, "a*c", true),
		mustPattern(t, "ab*", false),
	}, staticTags(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_NoPatternMeansDisabled(t *testing.T) {
	got, err := loader.Resolve("/r", []string{"/r/a/policies/x.yml"}, nil, staticTags(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_TagReaderError(t *testing.T) {
	failing := func(string) ([]string, error) { return nil, errors.New("unreadable") }
	_, err := loader.Resolve("/r", []string{"/r/a/policies/x.yml"},
		[]*loader.PolicyPattern{mustPattern(t, "*", true, "x")}, failing)
	errutil.AssertErrorCode(t, err, errutil.CodePolicyLoad)
}

func TestNewPolicyPattern_InvalidGlob(t *testing.T) {
	_, err := loader.NewPolicyPattern(config.PolicyRule{Name: "[a", Enabled: true})
	errutil.AssertErrorCode(t, err, errutil.CodeConfigInvalid)
}

func ptr[T any](v T) *T { return &v }
