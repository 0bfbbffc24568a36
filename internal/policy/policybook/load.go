// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package policybook

import (
	"fmt"
	"os"
	"sort"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// Load parses a policy book document.
func Load(data []byte) ([]*PolicySet, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, oops.Code(errutil.CodePolicyLoad).Wrap(err)
	}

	var doc bookDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code(errutil.CodePolicyLoad).Wrapf(err, "decoding policy book")
	}

	sets := make([]*PolicySet, 0, len(doc))
	for i := range doc {
		set, err := buildSet(&doc[i])
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// LoadFile reads and parses the policy book at path.
func LoadFile(path string) ([]*PolicySet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from policy discovery
	if err != nil {
		return nil, oops.Code(errutil.CodePolicyLoad).With("path", path).Wrapf(err, "reading policy book")
	}
	sets, err := Load(data)
	if err != nil {
		return nil, oops.With("path", path).Wrapf(err, "loading policy book %s", path)
	}
	return sets, nil
}

// Tags returns the sorted union of the tags declared by the policies in the
// policy book at path. Conditions are not compiled.
func Tags(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from policy discovery
	if err != nil {
		return nil, fmt.Errorf("reading policy book: %w", err)
	}
	var doc []struct {
		Policies []struct {
			Tags []string `yaml:"tags"`
		} `yaml:"policies"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding policy book %s: %w", path, err)
	}

	seen := make(map[string]bool)
	var tags []string
	for _, set := range doc {
		for _, p := range set.Policies {
			for _, t := range p.Tags {
				if !seen[t] {
					seen[t] = true
					tags = append(tags, t)
				}
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

func buildSet(d *setDoc) (*PolicySet, error) {
	set := &PolicySet{
		Name:                  d.Name,
		Hosts:                 hostsList(d.Hosts),
		Vars:                  d.Vars.vars,
		MatchMultiplePolicies: d.MatchMultiplePolicies,
	}

	for i := range d.Policies {
		pd := &d.Policies[i]
		p, err := buildPolicy(pd, set)
		if err != nil {
			return nil, oops.With("policy_set", d.Name, "policy", pd.Name).
				Wrapf(err, "policy %q", pd.Name)
		}
		set.Policies = append(set.Policies, p)
	}
	return set, nil
}

func buildPolicy(d *policyDoc, set *PolicySet) (*Policy, error) {
	p := &Policy{
		Name:       d.Name,
		TargetType: d.Target,
		Tags:       d.Tags,
		Enabled:    d.Enabled == nil || *d.Enabled,
	}

	cond, err := d.Condition.compile(set.Vars)
	if err != nil {
		return nil, err
	}
	if cond == nil {
		return nil, oops.Code(errutil.CodePolicyLoad).Errorf("condition is required")
	}
	p.Condition = cond

	if d.Exception != nil {
		exc, err := d.Exception.compile(set.Vars)
		if err != nil {
			return nil, err
		}
		p.Exception = exc
	}

	for _, ad := range d.Actions {
		a, err := buildAction(ad)
		if err != nil {
			return nil, err
		}
		p.Actions = append(p.Actions, a)
	}
	return p, nil
}

func buildAction(d actionDoc) (*Action, error) {
	if len(d) != 1 {
		return nil, oops.Code(errutil.CodePolicyLoad).Errorf("an action must declare exactly one kind, got %d", len(d))
	}
	for name, args := range d {
		kind := types.ActionKind(name)
		if !bookActionKinds[kind] {
			return nil, oops.Code(errutil.CodeUnsupportedOperator).
				With("action", name).
				Errorf("%s is not a supported action; supported actions are permit, forbid, allow, deny, info, warn", name)
		}
		a := &Action{Kind: kind}
		if args != nil {
			a.Message = args.Msg
			a.Principal = args.Principal
			a.Action = args.Action
			a.Resource = args.Resource
		}
		return a, nil
	}
	return nil, nil
}
