// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package dsl_test

import (
	"testing"

	"github.com/ansible/ansible-policy/internal/policy/dsl"
)

// FuzzParse tests the parser against arbitrary input to ensure it never panics.
func FuzzParse(f *testing.F) {
	seeds := []string{
		`context.become_user == "malicious-user"`,
		`context.range["x"][1][2].a["b"] == 3.1415`,
		`context.range[-1] == 3.1415`,
		`not context.enabled`,
		`not (context.range.i < 1)`,
		`context.range.i is not defined`,
		`(context.range.i is not defined) or (context.range.i is defined)`,
		`context.i in [1,2,3]`,
		`context["ansible.builtin.package"].name in [["A1", "A2"], "B", "C"]`,
		`context.radius not in [1079.6234,3985.8,2106.1234]`,
		`context.friends contains 'fred'`,
		`context.friends lacks key 'fred'`,
		`context.url is not match("https://example.com/users/.*/resources",ignorecase=true)`,
		`context.url is regex("example.com/foo",ignorecase=true)`,
		`context.persons is selectattr("person.age", ">=", 50)`,
		`context.persons is not select("regex", "fred|barney")`,
		`context.is_true is select("==", False)`,
		`context.friend == null`,
		`context.a == 1 or context.b == 2 and context.c == 3`,
		`((((true))))`,
		`allowed_users`,
		`'unterminated`,
		`context.a ==`,
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	vars := dsl.NewVars(dsl.Var{Name: "allowed_users", Value: []any{"root"}})
	f.Fuzz(func(_ *testing.T, input string) {
		n, err := dsl.Parse(input, vars)
		if err == nil {
			_ = n.String()
		}
	})
}
