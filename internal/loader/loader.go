// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package loader installs the policy sources of a config, discovers the
// policy files they contain and loads the enabled ones.
package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/config"
	"github.com/ansible/ansible-policy/internal/engine"
	"github.com/ansible/ansible-policy/internal/policy/policybook"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// Source is one enabled policy file. Exactly one of Book and Compiled is set.
type Source struct {
	Name     string
	Path     string
	Book     []*policybook.PolicySet
	Compiled *types.CompiledPolicy
}

// Loader installs and loads the sources of one config.
type Loader struct {
	cfg        *config.Config
	patterns   []*PolicyPattern
	installDir string
	ownsDir    bool
	force      bool
	runner     engine.Runner
	galaxy     string
	cloner     Cloner
	tags       TagReader
	logger     *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithInstallDir sets the directory sources are installed into. Without it
// the loader creates a private directory and removes it on Close.
func WithInstallDir(dir string) Option {
	return func(l *Loader) { l.installDir = dir }
}

// WithForce reinstalls sources whose target directory is not empty.
func WithForce(force bool) Option {
	return func(l *Loader) { l.force = force }
}

// WithRunner sets the runner used for ansible-galaxy.
func WithRunner(r engine.Runner) Option {
	return func(l *Loader) { l.runner = r }
}

// WithGalaxyCommand overrides the ansible-galaxy executable.
func WithGalaxyCommand(name string) Option {
	return func(l *Loader) { l.galaxy = name }
}

// WithCloner overrides how git sources are fetched.
func WithCloner(c Cloner) Option {
	return func(l *Loader) { l.cloner = c }
}

// WithTagReader overrides how policy tags are read.
func WithTagReader(r TagReader) Option {
	return func(l *Loader) { l.tags = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New builds a loader for cfg.
func New(cfg *config.Config, opts ...Option) (*Loader, error) {
	l := &Loader{
		cfg:    cfg,
		runner: engine.ExecRunner{},
		galaxy: "ansible-galaxy",
		cloner: GitCloner{},
		tags:   FileTags,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, rule := range cfg.Policies {
		p, err := NewPolicyPattern(rule)
		if err != nil {
			return nil, err
		}
		l.patterns = append(l.patterns, p)
	}

	if l.installDir == "" {
		l.installDir = filepath.Join(os.TempDir(), "ansible-policy-"+ulid.Make().String())
		l.ownsDir = true
	}
	return l, nil
}

// FromPath builds a loader for a single policy directory or file.
func FromPath(path string, opts ...Option) (*Loader, error) {
	return New(config.ForPath(path), opts...)
}

// InstallDir returns the install root.
func (l *Loader) InstallDir() string { return l.installDir }

// Close removes the install root when the loader created it.
func (l *Loader) Close() error {
	if !l.ownsDir {
		return nil
	}
	if err := os.RemoveAll(l.installDir); err != nil {
		return oops.With("dir", l.installDir).Wrapf(err, "removing install directory")
	}
	return nil
}

// Install places every source under the install root. Targets that already
// hold files are left alone unless the loader was built with WithForce.
func (l *Loader) Install(ctx context.Context) error {
	if err := os.MkdirAll(l.installDir, 0o755); err != nil {
		return oops.Code(errutil.CodeSourceInstall).With("dir", l.installDir).Wrapf(err, "creating install directory")
	}

	for _, src := range l.cfg.Sources {
		target := filepath.Join(l.installDir, src.Name)
		if installed(target) {
			if !l.force {
				l.logger.DebugContext(ctx, "source already installed", "source", src.Name, "target", target)
				continue
			}
			if err := os.RemoveAll(target); err != nil {
				return oops.Code(errutil.CodeSourceInstall).With("source", src.Name).Wrapf(err, "removing previous install")
			}
		}

		l.logger.DebugContext(ctx, "installing source", "source", src.Name, "type", src.Type, "target", target)

		var err error
		switch src.Type {
		case config.SourcePath:
			err = installPath(src.Location, target)
		case config.SourceGit:
			err = l.cloner.Clone(ctx, src.Location, target)
		case config.SourceGalaxy:
			err = l.installGalaxy(ctx, src.Location, target)
		default:
			err = oops.Errorf("%q is not a supported source type", src.Type)
		}
		if err != nil {
			return oops.Code(errutil.CodeSourceInstall).
				With("source", src.Name).
				With("location", src.Location).
				Wrapf(err, "installing source %q", src.Name)
		}
	}
	return nil
}

// installed reports whether target exists and, for a directory, holds files.
func installed(target string) bool {
	info, err := os.Stat(target)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	entries, err := os.ReadDir(target)
	return err == nil && len(entries) > 0
}

// installPath links a local directory into the install root. A single file
// is linked inside a directory named after the source.
func installPath(location, target string) error {
	abs, err := filepath.Abs(location)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	if info.IsDir() {
		return os.Symlink(abs, target)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	return os.Symlink(abs, filepath.Join(target, filepath.Base(abs)))
}

func (l *Loader) installGalaxy(ctx context.Context, name, target string) error {
	cmd := engine.Command{
		Name: l.galaxy,
		Args: []string{"collection", "install", name, "-p", target, "--force"},
	}
	out, err := l.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	l.logger.DebugContext(ctx, "ansible-galaxy finished",
		"command", cmd.String(),
		"stdout", string(out.Stdout),
		"stderr", string(out.Stderr),
	)
	if out.ExitCode != 0 {
		return oops.With("stderr", string(out.Stderr), "exit_code", out.ExitCode).
			Errorf("failed to install collection %q", name)
	}
	return nil
}

// Load installs the sources, discovers their policy files and parses the
// enabled ones, in path order.
func (l *Loader) Load(ctx context.Context) ([]*Source, error) {
	if err := l.Install(ctx); err != nil {
		return nil, err
	}
	files, err := l.Discover()
	if err != nil {
		return nil, err
	}
	enabled, err := Resolve(l.installDir, files, l.patterns, l.tags)
	if err != nil {
		return nil, err
	}

	sources := make([]*Source, 0, len(enabled))
	for _, f := range enabled {
		src, err := loadFile(l.installDir, f)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	l.logger.InfoContext(ctx, "policies loaded", "discovered", len(files), "enabled", len(sources))
	return sources, nil
}

func loadFile(root, path string) (*Source, error) {
	rel, _ := filepath.Rel(root, path)
	name, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	src := &Source{Name: name, Path: path}

	if _, ok := types.LanguageForExt(filepath.Ext(path)); ok {
		cp, err := types.LoadCompiled(path)
		if err != nil {
			return nil, oops.Code(errutil.CodePolicyLoad).With("path", path).Wrap(err)
		}
		src.Compiled = cp
		return src, nil
	}

	book, err := policybook.LoadFile(path)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	src.Book = book
	return src, nil
}

// FileTags reads tags from a policy book or a compiled policy file.
func FileTags(path string) ([]string, error) {
	if _, ok := types.LanguageForExt(filepath.Ext(path)); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		meta, err := types.ParseMarkers(string(data))
		if err != nil {
			return nil, err
		}
		return meta.Tags, nil
	}
	return policybook.Tags(path)
}

// sortedUnique sorts paths and drops duplicates.
func sortedUnique(paths []string) []string {
	sort.Strings(paths)
	out := paths[:0]
	for i, p := range paths {
		if i == 0 || p != paths[i-1] {
			out = append(out, p)
		}
	}
	return out
}
