// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package config parses ansible-policy.cfg files: the policy enablement
// patterns, the policy sources to install and the plugin bundles to load.
package config

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/pkg/errutil"
)

// DefaultFilename is the conventional config file name.
const DefaultFilename = "ansible-policy.cfg"

// Source types.
const (
	SourcePath   = "path"
	SourceGalaxy = "galaxy"
	SourceGit    = "git"
)

// Section names.
const (
	sectionPolicy = "policy"
	sectionSource = "source"
	sectionPlugin = "plugin"
)

var (
	sectionRe = regexp.MustCompile(`^\[([a-zA-Z0-9._\-]+)\]`)
	policyRe  = regexp.MustCompile(`^[ ]*([^ #]*)[ ]+(tag[ ]?=[ ]?[^ ]+)?.*(enabled|disabled).*`)
	sourceRe  = regexp.MustCompile(`^[ ]*([^ #]*)[ ]*=[ ]*([^ ]+)([ ]+type[ ]?=[ ]?[^ ]+)?.*`)
	pluginRe  = regexp.MustCompile(`^[ ]*([^ #]*)[ ]*=[ ]*(.*)[ ]*`)
)

// Config is a parsed config file.
type Config struct {
	Policies []PolicyRule
	Sources  []Source
	Plugins  []PluginRef
}

// PolicyRule enables or disables the sources whose name matches Name, a
// glob. A non-empty Tags restricts the rule to policies carrying one of them.
type PolicyRule struct {
	Name    string
	Tags    []string
	Enabled bool
}

// Source is a named policy location.
type Source struct {
	Name     string
	Location string
	Type     string
}

// PluginRef names a plugin bundle directory.
type PluginRef struct {
	Name string
	Dir  string
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oops.Code(errutil.CodeConfigInvalid).With("path", path).Wrapf(err, "opening config")
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return cfg, nil
}

// Parse parses config text. Lines before the first section header and
// unknown sections are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}
	section := ""
	lineNo := 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := sectionRe.FindStringSubmatch(line); m != nil {
			section = m[1]
			switch section {
			case sectionPolicy, sectionSource, sectionPlugin:
			default:
				return nil, oops.Code(errutil.CodeConfigInvalid).
					With("line", lineNo).
					With("section", section).
					Errorf("%q is an unknown section name", section)
			}
			continue
		}

		var err error
		switch section {
		case sectionPolicy:
			err = cfg.addPolicy(line)
		case sectionSource:
			err = cfg.addSource(line)
		case sectionPlugin:
			cfg.addPlugin(line)
		default:
			err = oops.Code(errutil.CodeConfigInvalid).Errorf("entry outside of any section")
		}
		if err != nil {
			return nil, oops.With("line", lineNo).Wrap(err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, oops.Code(errutil.CodeConfigInvalid).Wrapf(err, "reading config")
	}
	return cfg, nil
}

// addPolicy parses `<name> [tag=a,b] enabled|disabled`. Lines that do not
// set enabled or disabled are ignored.
func (c *Config) addPolicy(line string) error {
	if !strings.Contains(line, "enabled") && !strings.Contains(line, "disabled") {
		return nil
	}
	m := policyRe.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return nil
	}

	rule := PolicyRule{Name: m[1], Enabled: m[3] == "enabled"}
	if rule.Name == "default" {
		rule.Name = "*"
	}
	if m[2] != "" {
		_, tags, _ := strings.Cut(strings.ReplaceAll(m[2], " ", ""), "=")
		for _, t := range strings.Split(tags, ",") {
			if t != "" {
				rule.Tags = append(rule.Tags, t)
			}
		}
	}
	c.Policies = append(c.Policies, rule)
	return nil
}

// addSource parses `<name> = <location> [type = path|galaxy|git]`.
func (c *Config) addSource(line string) error {
	m := sourceRe.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return nil
	}

	src := Source{Name: m[1], Location: m[2]}
	if m[3] != "" {
		_, typ, _ := strings.Cut(strings.ReplaceAll(m[3], " ", ""), "=")
		src.Type = typ
	} else {
		src.Type = DefaultSourceType(src.Location)
	}

	switch src.Type {
	case SourcePath, SourceGalaxy, SourceGit:
	default:
		return oops.Code(errutil.CodeConfigInvalid).
			With("source", src.Name).
			Errorf("%q is not a supported source type", src.Type)
	}
	c.Sources = append(c.Sources, src)
	return nil
}

// addPlugin parses `<name> = <bundle dir>`.
func (c *Config) addPlugin(line string) {
	m := pluginRe.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return
	}
	c.Plugins = append(c.Plugins, PluginRef{Name: m[1], Dir: strings.TrimSpace(m[2])})
}

// DefaultSourceType infers the type of a source without an explicit type:
// paths contain a slash, anything else (or a tarball) is a Galaxy collection.
func DefaultSourceType(location string) string {
	if strings.Contains(location, "/") && !strings.HasSuffix(location, ".tar.gz") {
		return SourcePath
	}
	return SourceGalaxy
}

// ForPath is the implicit config used when a policy directory is given
// without a config file.
func ForPath(path string) *Config {
	const name = "policy"
	return &Config{
		Policies: []PolicyRule{{Name: name, Enabled: true}},
		Sources:  []Source{{Name: name, Location: path, Type: SourcePath}},
	}
}
