// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package types_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansible/ansible-policy/internal/policy/types"
)

func TestParseActionKind(t *testing.T) {
	for _, s := range []string{"permit", "forbid", "allow", "deny", "info", "warn", "ignore"} {
		k, err := types.ParseActionKind(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(k))
	}

	_, err := types.ParseActionKind("reject")
	assert.Error(t, err)
}

func TestActionKind_IsHard(t *testing.T) {
	assert.True(t, types.ActionDeny.IsHard())
	assert.True(t, types.ActionAllow.IsHard())
	assert.False(t, types.ActionWarn.IsHard())
	assert.False(t, types.ActionInfo.IsHard())
	assert.False(t, types.ActionPermit.IsHard())
}

func TestLanguageForExt(t *testing.T) {
	lang, ok := types.LanguageForExt(".rego")
	assert.True(t, ok)
	assert.Equal(t, types.LanguageRego, lang)

	lang, ok = types.LanguageForExt("cedar")
	assert.True(t, ok)
	assert.Equal(t, "cedar", lang.Ext())

	_, ok = types.LanguageForExt(".yml")
	assert.False(t, ok)
}

func TestPackageName(t *testing.T) {
	body := "# comment\n\n  package check_become  \n\nimport future.keywords.if\n"
	assert.Equal(t, "check_become", types.PackageName(body))
	assert.Empty(t, types.PackageName("deny = true\n"))
}

func TestParseMarkers(t *testing.T) {
	t.Run("rego", func(t *testing.T) {
		meta, err := types.ParseMarkers("package p\n\n__target__ = \"task\"\n__tags__ = [\"security\", \"compliance\"]\n")
		require.NoError(t, err)
		assert.Equal(t, "task", meta.Target)
		assert.Equal(t, []string{"security", "compliance"}, meta.Tags)
	})

	t.Run("cedar comments", func(t *testing.T) {
		meta, err := types.ParseMarkers("// __target__ = \"rest\"\n// __tags__ = [\"api\"]\npermit(principal, action, resource);\n")
		require.NoError(t, err)
		assert.Equal(t, "rest", meta.Target)
		assert.Equal(t, []string{"api"}, meta.Tags)
	})

	t.Run("walrus assignment", func(t *testing.T) {
		meta, err := types.ParseMarkers("__target__ := \"play\"\n")
		require.NoError(t, err)
		assert.Equal(t, "play", meta.Target)
	})

	t.Run("malformed tags", func(t *testing.T) {
		_, err := types.ParseMarkers("__tags__ = [oops\n")
		assert.Error(t, err)
	})
}

func TestLoadCompiled(t *testing.T) {
	dir := t.TempDir()

	rego := filepath.Join(dir, "check_user.rego")
	require.NoError(t, os.WriteFile(rego, []byte("package check_user\n\n__target__ = \"task\"\n__tags__ = [\"security\"]\n\ndeny = true if { input.become_user == \"root\" } else = false\n"), 0o600))

	p, err := types.LoadCompiled(rego)
	require.NoError(t, err)
	assert.Equal(t, "check_user", p.Name)
	assert.Equal(t, types.LanguageRego, p.Language)
	assert.Equal(t, rego, p.Path)
	assert.Equal(t, types.Metadata{Target: "task", Tags: []string{"security"}, Package: "check_user"}, p.Metadata)

	cedar := filepath.Join(dir, "rest_guard.cedar")
	require.NoError(t, os.WriteFile(cedar, []byte("// __target__ = \"rest\"\n\nforbid(\n    principal,\n    action,\n    resource\n);\n"), 0o600))

	p, err = types.LoadCompiled(cedar)
	require.NoError(t, err)
	assert.Equal(t, "rest_guard", p.Name)
	assert.Equal(t, types.LanguageCedar, p.Language)
	assert.Equal(t, "rest", p.Metadata.Target)

	nopkg := filepath.Join(dir, "bad.rego")
	require.NoError(t, os.WriteFile(nopkg, []byte("deny = true\n"), 0o600))
	_, err = types.LoadCompiled(nopkg)
	assert.Error(t, err)

	_, err = types.LoadCompiled(filepath.Join(dir, "x.txt"))
	assert.Error(t, err)
}

func TestLineSpan_String(t *testing.T) {
	assert.Equal(t, "L3-7", (&types.LineSpan{Begin: 3, End: 7}).String())
	assert.Equal(t, "L3", (&types.LineSpan{Begin: 3}).String())
	assert.Equal(t, "", (*types.LineSpan)(nil).String())
}
