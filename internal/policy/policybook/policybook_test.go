// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package policybook_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansible/ansible-policy/internal/policy/dsl"
	"github.com/ansible/ansible-policy/internal/policy/policybook"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

func TestLoadFile(t *testing.T) {
	sets, err := policybook.LoadFile(filepath.Join("testdata", "check_become.yml"))
	require.NoError(t, err)
	require.Len(t, sets, 1)

	set := sets[0]
	assert.Equal(t, "Check become user", set.Name)
	assert.Equal(t, []string{"localhost"}, set.Hosts)
	assert.False(t, set.MatchMultiplePolicies)

	vars := set.Vars.All()
	require.Len(t, vars, 2)
	assert.Equal(t, "allowed_users", vars[0].Name)
	assert.Equal(t, []any{"trusted_user"}, vars[0].Value)
	assert.Equal(t, "minimum_age", vars[1].Name)

	require.Len(t, set.Policies, 2)

	first := set.Policies[0]
	assert.Equal(t, "Check for become_user", first.Name)
	assert.Equal(t, types.TargetTask, first.TargetType)
	assert.True(t, first.Enabled)
	assert.Equal(t, []string{"security"}, first.Tags)
	require.NotNil(t, first.Condition.Membership)
	assert.Equal(t, dsl.OpItemNotInList, first.Condition.Membership.Op)
	assert.Equal(t, dsl.Ref(dsl.RootVariable, "allowed_users"), first.Condition.Membership.RHS)
	assert.Nil(t, first.Exception)
	require.Len(t, first.Actions, 1)
	assert.Equal(t, types.ActionDeny, first.Actions[0].Kind)
	assert.Equal(t, "{{ context.become_user }} is not allowed", first.Actions[0].Message)
	assert.Equal(t, policybook.Matcher{}, first.Actions[0].Principal)

	second := set.Policies[1]
	assert.False(t, second.Enabled)
	require.NotNil(t, second.Condition.NAry)
	assert.Equal(t, dsl.Or, second.Condition.NAry.Op)
	assert.Len(t, second.Condition.NAry.Children, 2)
	require.NotNil(t, second.Exception)
	require.NotNil(t, second.Exception.Defined)
	assert.True(t, second.Exception.Defined.Negated)

	act := second.Actions[0]
	assert.Equal(t, types.ActionPermit, act.Kind)
	assert.Equal(t, policybook.Exact(`Company::"XXX"`), act.Principal)
	assert.Equal(t, policybook.In([]any{`Action::"allow"`, `Action::"update"`}), act.Action)
	assert.Equal(t, policybook.IsIn("Dir", `File::"hello"`), act.Resource)
}

func TestLoad_ConditionForms(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		check     func(t *testing.T, n *dsl.Node)
	}{
		{
			name:      "string",
			condition: `condition: context.a == 1`,
			check: func(t *testing.T, n *dsl.Node) {
				require.NotNil(t, n.Compare)
			},
		},
		{
			name:      "bare list is all",
			condition: "condition:\n        - context.a == 1\n        - context.b == 2",
			check: func(t *testing.T, n *dsl.Node) {
				require.NotNil(t, n.NAry)
				assert.Equal(t, dsl.And, n.NAry.Op)
				assert.Len(t, n.NAry.Children, 2)
			},
		},
		{
			name:      "all mapping",
			condition: "condition:\n        all:\n          - context.a == 1",
			check: func(t *testing.T, n *dsl.Node) {
				require.NotNil(t, n.NAry)
				assert.Equal(t, dsl.And, n.NAry.Op)
				assert.Len(t, n.NAry.Children, 1)
			},
		},
		{
			name:      "nested any inside all",
			condition: "condition:\n        all:\n          - context.a == 1\n          - any:\n              - context.b == 2\n              - context.c == 3",
			check: func(t *testing.T, n *dsl.Node) {
				require.NotNil(t, n.NAry)
				require.Len(t, n.NAry.Children, 2)
				require.NotNil(t, n.NAry.Children[1].NAry)
				assert.Equal(t, dsl.Or, n.NAry.Children[1].NAry.Op)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `
- name: set
  hosts: all
  policies:
    - name: p
      target: task
      ` + tt.condition + `
      actions:
        - warn:
            msg: hello
`
			sets, err := policybook.Load([]byte(doc))
			require.NoError(t, err)
			tt.check(t, sets[0].Policies[0].Condition)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{
			name: "unknown action kind",
			doc: `
- name: set
  policies:
    - name: p
      target: task
      condition: context.a == 1
      actions:
        - reject:
            msg: denied
`,
			code: errutil.CodeUnsupportedOperator,
		},
		{
			name: "unresolved variable",
			doc: `
- name: set
  policies:
    - name: p
      target: task
      condition: context.a in missing_list
      actions:
        - deny:
            msg: denied
`,
			code: errutil.CodeUnresolvedVariable,
		},
		{
			name: "malformed condition",
			doc: `
- name: set
  policies:
    - name: p
      target: task
      condition: context.a ==
      actions:
        - deny:
            msg: denied
`,
			code: errutil.CodeParse,
		},
		{
			name: "missing target",
			doc: `
- name: set
  policies:
    - name: p
      condition: context.a == 1
      actions:
        - deny:
            msg: denied
`,
			code: errutil.CodePolicyLoad,
		},
		{
			name: "no actions",
			doc: `
- name: set
  policies:
    - name: p
      target: task
      condition: context.a == 1
      actions: []
`,
			code: errutil.CodePolicyLoad,
		},
		{
			name: "two kinds in one action",
			doc: `
- name: set
  policies:
    - name: p
      target: task
      condition: context.a == 1
      actions:
        - deny:
            msg: denied
          warn:
            msg: denied
`,
			code: errutil.CodePolicyLoad,
		},
		{
			name: "not a list",
			doc:  "name: set\n",
			code: errutil.CodePolicyLoad,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := policybook.Load([]byte(tt.doc))
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestLoad_ErrorCarriesPolicyName(t *testing.T) {
	doc := `
- name: set
  policies:
    - name: broken policy
      target: task
      condition: context.a ==
      actions:
        - deny:
            msg: denied
`
	_, err := policybook.Load([]byte(doc))
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "policy", "broken policy")
}

func TestTags(t *testing.T) {
	tags, err := policybook.Tags(filepath.Join("testdata", "check_become.yml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"compliance", "security"}, tags)

	_, err = policybook.Tags(filepath.Join("testdata", "missing.yml"))
	assert.Error(t, err)
}

func TestGenerateSchema(t *testing.T) {
	data, err := policybook.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, policybook.SchemaID, schema["$id"])
	assert.Equal(t, "array", schema["type"])
}
