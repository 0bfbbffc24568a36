// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansible/ansible-policy/internal/policy/dsl"
	"github.com/ansible/ansible-policy/internal/policy/policybook"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

func loadBook(t *testing.T) *policybook.PolicySet {
	t.Helper()
	sets, err := policybook.LoadFile(filepath.Join("testdata", "check_become.yml"))
	require.NoError(t, err)
	require.Len(t, sets, 1)
	return sets[0]
}

const becomeRego = `package Check_for_become_user

import future.keywords.if
import future.keywords.in

__target__ = "task"
__tags__ = ["security"]

context := input

allowed_users = ["trusted_user"]
minimum_age = 18

deny = true if {
    not (context.become_user in allowed_users)
    print(sprintf("%v is not allowed", [context.become_user]))
} else = false
`

func TestRego_TranspilePolicy(t *testing.T) {
	set := loadBook(t)

	cp, err := transpile.NewRego().TranspilePolicy(set, set.Policies[0])
	require.NoError(t, err)

	assert.Equal(t, "Check_for_become_user", cp.Name)
	assert.Equal(t, types.LanguageRego, cp.Language)
	assert.Equal(t, becomeRego, cp.Body)
	assert.Equal(t, types.Metadata{
		Target:     types.TargetTask,
		Tags:       []string{"security"},
		Package:    "Check_for_become_user",
		ActionKind: types.ActionDeny,
	}, cp.Metadata)

	meta, err := types.ParseMarkers(cp.Body)
	require.NoError(t, err)
	assert.Equal(t, types.TargetTask, meta.Target)
	assert.Equal(t, []string{"security"}, meta.Tags)
	assert.Equal(t, "Check_for_become_user", types.PackageName(cp.Body))
}

func TestRego_AliasesAndException(t *testing.T) {
	set := loadBook(t)

	cp, err := transpile.NewRego().TranspilePolicy(set, set.Policies[1])
	require.NoError(t, err)

	assert.Contains(t, cp.Body, "context := input\nprincipal := input.principal\n")
	assert.NotContains(t, cp.Body, "resource := input.resource")
	assert.Contains(t, cp.Body, "\npermit = true if {\n"+
		"    (principal.role == \"admin\" || context.age >= minimum_age)\n"+
		"    not (not context.user)\n"+
		"} else = false\n")
}

func TestRego_MessageRootsAreAliased(t *testing.T) {
	set := &policybook.PolicySet{Name: "s"}
	p := &policybook.Policy{
		Name:       "p",
		TargetType: types.TargetRest,
		Enabled:    true,
		Condition:  dsl.Compare(dsl.OpEquals, dsl.Context("x"), dsl.Int(1)),
		Actions: []*policybook.Action{
			{Kind: types.ActionInfo, Message: "{{ resource.name }} seen"},
			{Kind: types.ActionWarn},
		},
	}

	cp, err := transpile.NewRego().TranspilePolicy(set, p)
	require.NoError(t, err)
	assert.Contains(t, cp.Body, "context := input\nresource := input.resource\n")
	assert.Contains(t, cp.Body, "\ninfo = true if {\n")
	assert.Contains(t, cp.Body, "\nwarn = true if {\n    context.x == 1\n} else = false\n")
	assert.NotContains(t, cp.Body, "__tags__")
}

func TestRego_DuplicateActionKind(t *testing.T) {
	set := &policybook.PolicySet{Name: "s"}
	p := &policybook.Policy{
		Name:      "p",
		Enabled:   true,
		Condition: dsl.Context("x"),
		Actions:   []*policybook.Action{{Kind: types.ActionDeny}, {Kind: types.ActionDeny}},
	}
	_, err := transpile.NewRego().TranspilePolicy(set, p)
	errutil.AssertErrorCode(t, err, errutil.CodeUnsupportedOperator)
}

const apiCedar = `// __target__ = "rest"
// __tags__ = ["compliance","security"]

permit (
    principal == Company::"XXX",
    action in [Action::"allow", Action::"update"],
    resource is Dir in File::"hello"
)
when {
    (principal.role == "admin"||
    context.age >= 18)
}
unless {
    !(context has user)
};
`

func TestCedar_TranspilePolicy(t *testing.T) {
	set := loadBook(t)

	cp, err := transpile.NewCedar(transpile.WithVerify()).TranspilePolicy(set, set.Policies[1])
	require.NoError(t, err)

	assert.Equal(t, "Check_api_caller", cp.Name)
	assert.Equal(t, types.LanguageCedar, cp.Language)
	assert.Equal(t, apiCedar, cp.Body)

	meta, err := types.ParseMarkers(cp.Body)
	require.NoError(t, err)
	assert.Equal(t, types.TargetRest, meta.Target)
	assert.Equal(t, []string{"compliance", "security"}, meta.Tags)
}

func TestCedar_DenyBecomesForbid(t *testing.T) {
	set := loadBook(t)

	cp, err := transpile.NewCedar().TranspilePolicy(set, set.Policies[0])
	require.NoError(t, err)
	assert.Contains(t, cp.Body, "\nforbid (\n    principal,\n    action,\n    resource\n)\nwhen {\n"+
		"    !([\"trusted_user\"].contains(context.become_user))\n};\n")
}

func TestCedar_UnsupportedAction(t *testing.T) {
	set := &policybook.PolicySet{Name: "s"}
	p := &policybook.Policy{
		Name:      "p",
		Enabled:   true,
		Condition: dsl.Context("x"),
		Actions:   []*policybook.Action{{Kind: types.ActionWarn}},
	}
	_, err := transpile.NewCedar().TranspilePolicy(set, p)
	errutil.AssertErrorCode(t, err, errutil.CodeUnsupportedOperator)
}

func TestCedar_VerifyRejectsInvalidOutput(t *testing.T) {
	set := &policybook.PolicySet{Name: "s"}
	p := &policybook.Policy{
		Name:      "ratio",
		Enabled:   true,
		Condition: dsl.Compare(dsl.OpGreaterThan, dsl.Context("ratio"), dsl.Float(0.5)),
		Actions:   []*policybook.Action{{Kind: types.ActionDeny}},
	}

	_, err := transpile.NewCedar().TranspilePolicy(set, p)
	require.NoError(t, err)

	_, err = transpile.NewCedar(transpile.WithVerify()).TranspilePolicy(set, p)
	errutil.AssertErrorCode(t, err, errutil.CodeParse)
}

func TestTranspile_SkipsDisabledPolicies(t *testing.T) {
	set := loadBook(t)

	for _, tr := range []transpile.Transpiler{transpile.NewRego(), transpile.NewCedar()} {
		t.Run(string(tr.Language()), func(t *testing.T) {
			out, err := tr.Transpile(set)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, "Check_for_become_user", out[0].Name)
		})
	}
}

func TestTranspile_ErrorCarriesPolicy(t *testing.T) {
	set := loadBook(t)
	set.Policies[0].Condition = &dsl.Node{Search: &dsl.Search{
		Kind: dsl.SearchSearch, LHS: dsl.Context("name"), Pattern: "x",
	}}

	_, err := transpile.NewCedar().Transpile(set)
	errutil.AssertErrorCode(t, err, errutil.CodeUnsupportedOperator)
	errutil.AssertErrorContext(t, err, "policy", "Check for become_user")
}

func TestTranspile_Deterministic(t *testing.T) {
	set := loadBook(t)
	set.Vars.Set("extra", map[string]any{"z": 1, "a": []any{"x"}})
	set.Policies[0].Condition = dsl.MustParse("context.n < extra.z", set.Vars)

	for _, tr := range []transpile.Transpiler{transpile.NewRego(), transpile.NewCedar()} {
		first, err := tr.Transpile(set)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := tr.Transpile(set)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestEmitter(t *testing.T) {
	base := t.TempDir()
	e := transpile.NewEmitter(base)

	cp := &types.CompiledPolicy{Name: "p1", Language: types.LanguageRego, Body: "package p1\n"}
	path, err := e.Ensure(cp)
	require.NoError(t, err)
	assert.Equal(t, path, cp.Path)
	assert.Equal(t, "p1.rego", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package p1\n", string(data))

	again, err := e.Ensure(cp)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	out := filepath.Join(base, "out")
	cp2 := &types.CompiledPolicy{Name: "p2", Language: types.LanguageCedar, Body: "// x"}
	written, err := e.Write(cp2, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "p2.cedar"), written)

	require.NoError(t, e.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(written)
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

func TestEmitterEnsureSameName(t *testing.T) {
	e := transpile.NewEmitter(t.TempDir())
	t.Cleanup(func() { _ = e.Close() })

	a := &types.CompiledPolicy{Name: "check_become", Language: types.LanguageRego, Body: "package check_become\n# alice\n"}
	b := &types.CompiledPolicy{Name: "check_become", Language: types.LanguageRego, Body: "package check_become\n# bob\n"}
	pa, err := e.Ensure(a)
	require.NoError(t, err)
	pb, err := e.Ensure(b)
	require.NoError(t, err)
	assert.NotEqual(t, pa, pb)
	assert.Equal(t, "check_become.rego", filepath.Base(pb))

	for _, cp := range []*types.CompiledPolicy{a, b} {
		data, err := os.ReadFile(cp.Path)
		require.NoError(t, err)
		assert.Equal(t, cp.Body, string(data))
	}
}

func TestEmitterScratchFile(t *testing.T) {
	e := transpile.NewEmitter(t.TempDir())
	t.Cleanup(func() { _ = e.Close() })

	a, err := e.ScratchFile("entities", ".json", []byte("[]"))
	require.NoError(t, err)
	b, err := e.ScratchFile("entities", ".json", []byte("{}"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, filepath.Dir(a), filepath.Dir(b))
	assert.Equal(t, ".json", filepath.Ext(a))

	data, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
