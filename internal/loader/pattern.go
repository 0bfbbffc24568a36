// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package loader

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/config"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// TagReader returns the tags declared by the policy file at path.
type TagReader func(path string) ([]string, error)

// PolicyPattern is a compiled [policy] rule.
type PolicyPattern struct {
	Name    string
	Tags    []string
	Enabled bool

	matcher glob.Glob
}

// NewPolicyPattern compiles rule. Source names never contain a separator,
// so the name glob is compiled without one.
func NewPolicyPattern(rule config.PolicyRule) (*PolicyPattern, error) {
	name := rule.Name
	if name == "" {
		name = "*"
	}
	g, err := glob.Compile(name)
	if err != nil {
		return nil, oops.Code(errutil.CodeConfigInvalid).
			With("pattern", rule.Name).
			Wrapf(err, "compiling policy pattern")
	}
	return &PolicyPattern{Name: rule.Name, Tags: rule.Tags, Enabled: rule.Enabled, matcher: g}, nil
}

// CheckEnabled returns the verdict of this pattern for the policy file at
// path, or nil when the pattern does not apply to it. The source name is the
// first segment of path relative to root.
func (p *PolicyPattern) CheckEnabled(root, path string, tags TagReader) (*bool, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, err
	}
	source, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if !p.matcher.Match(source) {
		return nil, nil
	}

	if len(p.Tags) > 0 {
		fileTags, err := tags(path)
		if err != nil {
			return nil, err
		}
		if !intersects(p.Tags, fileTags) {
			return nil, nil
		}
	}
	enabled := p.Enabled
	return &enabled, nil
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Resolve returns the enabled files. The most specific pattern (longest
// name) that applies to a file decides, and among equally long names the
// last declared one. Files no pattern applies to are disabled.
func Resolve(root string, files []string, patterns []*PolicyPattern, tags TagReader) ([]string, error) {
	ordered := make([]*PolicyPattern, len(patterns))
	for i, p := range patterns {
		ordered[len(patterns)-1-i] = p
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Name) > len(ordered[j].Name)
	})

	var enabled []string
	for _, f := range files {
		for _, p := range ordered {
			verdict, err := p.CheckEnabled(root, f, tags)
			if err != nil {
				return nil, oops.Code(errutil.CodePolicyLoad).With("path", f).Wrapf(err, "reading policy tags")
			}
			if verdict == nil {
				continue
			}
			if *verdict {
				enabled = append(enabled, f)
			}
			break
		}
	}
	return enabled, nil
}
