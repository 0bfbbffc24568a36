// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ansible/ansible-policy/internal/policy/policybook"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
)

func TestRenderMatcher(t *testing.T) {
	tests := []struct {
		name string
		m    policybook.Matcher
		want string
	}{
		{"any", policybook.Matcher{}, "principal"},
		{"exact", policybook.Exact(`User::"alice"`), `principal == User::"alice"`},
		{"in scalar", policybook.In(`Group::"admins"`), `principal in Group::"admins"`},
		{"in list", policybook.In([]any{`Group::"a"`, `Group::"b"`}), `principal in [Group::"a", Group::"b"]`},
		{"is", policybook.Is("User"), "principal is User"},
		{"is in", policybook.IsIn("User", `Group::"a"`), `principal is User in Group::"a"`},
		{"is in list", policybook.IsIn("User", []any{`Group::"a"`, []any{`Group::"b"`}}),
			`principal is User in [Group::"a", [Group::"b"]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transpile.RenderMatcher("principal", tt.m))
		})
	}
}

func TestRenderMessage(t *testing.T) {
	tests := []struct {
		tmpl string
		want string
	}{
		{"plain text", `print("plain text")`},
		{"{{ context.user }} is not allowed", `print(sprintf("%v is not allowed", [context.user]))`},
		{`{{context.a}} and "{{ context.b }}"`, `print(sprintf("%v and \"%v\"", [context.a, context.b]))`},
		{`use "root" carefully`, `print("use \"root\" carefully")`},
		{`100% of {{ context.x }}`, `print(sprintf("100%% of %v", [context.x]))`},
		{`50% done`, `print("50% done")`},
		{"line\\break {{ context.x }}", `print(sprintf("line\\break %v", [context.x]))`},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			assert.Equal(t, tt.want, transpile.RenderMessage(tt.tmpl))
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Check_for_become_user", transpile.SanitizeName("Check for become_user"))
	assert.Equal(t, "is_it_ok", transpile.SanitizeName("is-it-ok?"))
	assert.Equal(t, "f_x_", transpile.SanitizeName("f(x)"))
	assert.Equal(t, "a_b_c_d", transpile.SanitizeName("a/b.c:d"))
	assert.Equal(t, "caf__check", transpile.SanitizeName("café check"))
	assert.Equal(t, "_2fa_enabled", transpile.SanitizeName("2fa enabled"))
}
