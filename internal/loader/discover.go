// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/config"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

const policyExts = "{yml,yaml,rego,cedar}"

// discoveryGlobs match policy files by their path relative to the install
// root, which always starts with the source name.
var discoveryGlobs = []glob.Glob{
	glob.MustCompile("**/policies/*."+policyExts, '/'),
	glob.MustCompile("**/policies/**/*."+policyExts, '/'),
	glob.MustCompile("**/extensions/policy/*."+policyExts, '/'),
	glob.MustCompile("**/extensions/policy/**/*."+policyExts, '/'),
}

var anyPolicyFile = glob.MustCompile("**."+policyExts, '/')

// Discover lists the policy files of every installed source. A source with
// no conventional policy directory falls back to all of its policy files
// when its location is a policies or policy directory or a single file.
func (l *Loader) Discover() ([]string, error) {
	var out []string
	for _, src := range l.cfg.Sources {
		entry := filepath.Join(l.installDir, src.Name)
		info, err := os.Stat(entry)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, oops.Code(errutil.CodePolicyLoad).With("source", src.Name).Wrap(err)
		}
		if !info.IsDir() {
			continue
		}

		all, err := walkFiles(entry)
		if err != nil {
			return nil, oops.Code(errutil.CodePolicyLoad).With("source", src.Name).Wrapf(err, "walking source")
		}

		var found []string
		for _, f := range all {
			rel, _ := filepath.Rel(l.installDir, f)
			rel = filepath.ToSlash(rel)
			for _, g := range discoveryGlobs {
				if g.Match(rel) {
					found = append(found, f)
					break
				}
			}
		}
		if len(found) == 0 && (policyDir(src.Location) || singleFile(src)) {
			for _, f := range all {
				if anyPolicyFile.Match(filepath.ToSlash(f)) {
					found = append(found, f)
				}
			}
		}
		out = append(out, found...)
	}
	return sortedUnique(out), nil
}

// walkFiles lists regular files below dir. dir itself may be a symlink.
func walkFiles(dir string) ([]string, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.Join(dir, rel))
		return nil
	})
	return files, err
}

func singleFile(src config.Source) bool {
	if src.Type != config.SourcePath {
		return false
	}
	info, err := os.Stat(src.Location)
	return err == nil && !info.IsDir()
}

func policyDir(location string) bool {
	parts := strings.Split(filepath.ToSlash(location), "/")
	return slices.Contains(parts, "policies") || slices.Contains(parts, "policy")
}
