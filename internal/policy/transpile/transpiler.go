// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package transpile compiles policy book policies into backend source text.
//
// A condition tree is rendered by one recursive dispatcher that hands each
// node family to a backend Renderer. Rendered fragments are assembled into a
// small typed IR (Module) which each backend serializes with a pure function.
package transpile

import (
	"regexp"
	"strings"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/policy/policybook"
	"github.com/ansible/ansible-policy/internal/policy/types"
)

// Transpiler compiles policy books for one backend language.
type Transpiler interface {
	// Language reports the backend language emitted.
	Language() types.Language
	// TranspilePolicy compiles a single policy of set.
	TranspilePolicy(set *policybook.PolicySet, p *policybook.Policy) (*types.CompiledPolicy, error)
	// Transpile compiles every enabled policy of set, in declaration order.
	Transpile(set *policybook.PolicySet) ([]*types.CompiledPolicy, error)
}

// transpileSet is shared by both backends.
func transpileSet(t Transpiler, set *policybook.PolicySet) ([]*types.CompiledPolicy, error) {
	out := make([]*types.CompiledPolicy, 0, len(set.Policies))
	for _, p := range set.Policies {
		if !p.Enabled {
			continue
		}
		cp, err := t.TranspilePolicy(set, p)
		if err != nil {
			return nil, oops.With("policy_set", set.Name, "policy", p.Name).
				Wrapf(err, "transpiling policy %q", p.Name)
		}
		out = append(out, cp)
	}
	return out, nil
}

var nonIdentRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeName turns a policy name into a package and file name token.
// Question marks are dropped and every other character outside
// [A-Za-z0-9_] becomes an underscore. A leading digit gets a "_" prefix.
func SanitizeName(s string) string {
	s = nonIdentRe.ReplaceAllString(strings.ReplaceAll(s, "?", ""), "_")
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

func metadataFor(p *policybook.Policy, name string) types.Metadata {
	meta := types.Metadata{
		Target:  p.TargetType,
		Tags:    p.Tags,
		Package: name,
	}
	if len(p.Actions) > 0 {
		meta.ActionKind = p.Actions[0].Kind
	}
	return meta
}
