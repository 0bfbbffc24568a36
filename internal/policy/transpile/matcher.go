// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import (
	"fmt"
	"strings"

	"github.com/ansible/ansible-policy/internal/policy/policybook"
)

// RenderMatcher renders the scope clause of role ("principal", "action" or
// "resource") for matcher m.
func RenderMatcher(role string, m policybook.Matcher) string {
	switch m.Kind {
	case policybook.MatchExact:
		return role + " == " + matcherValue(m.Value)
	case policybook.MatchIn:
		return role + " in " + matcherValue(m.Value)
	case policybook.MatchIs:
		return role + " is " + m.Type
	case policybook.MatchIsIn:
		return role + " is " + m.Type + " in " + matcherValue(m.Value)
	default:
		return role
	}
}

// matcherValue keeps entity references as written and joins lists with
// ", ", preserving nesting.
func matcherValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = matcherValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []string:
		return "[" + strings.Join(val, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}
