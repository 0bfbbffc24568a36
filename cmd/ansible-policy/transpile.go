// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ansible/ansible-policy/internal/config"
	"github.com/ansible/ansible-policy/internal/evaluate"
	"github.com/ansible/ansible-policy/internal/loader"
	"github.com/ansible/ansible-policy/internal/observability"
	"github.com/ansible/ansible-policy/internal/plugin"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
)

// transpileConfig holds configuration for the transpile command.
type transpileConfig struct {
	policyDir   string
	configPath  string
	outDir      string
	verifyCedar bool
	watch       bool
	debounce    time.Duration
	metricsAddr string
}

// Validate checks that the configuration is valid.
func (cfg *transpileConfig) Validate() error {
	if cfg.policyDir == "" && cfg.configPath == "" {
		return fmt.Errorf("one of policy-dir or config is required")
	}
	if cfg.policyDir != "" && cfg.configPath != "" {
		return fmt.Errorf("policy-dir and config are mutually exclusive")
	}
	if cfg.outDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if cfg.debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", cfg.debounce)
	}
	if cfg.metricsAddr != "" && !cfg.watch {
		return fmt.Errorf("metrics-addr requires watch")
	}
	return nil
}

// Default values for transpile command flags.
const defaultDebounce = 200 * time.Millisecond

// NewTranspileCmd creates the transpile subcommand.
func NewTranspileCmd() *cobra.Command {
	cfg := &transpileConfig{}

	cmd := &cobra.Command{
		Use:   "transpile",
		Short: "Compile policybooks to Rego or Cedar files",
		Long: `Compile the enabled policies to .rego and .cedar files in the output
directory. Raw .rego and .cedar policies are copied through. With --watch the
command keeps running and recompiles whenever a policy file changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTranspileWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.policyDir, "policy-dir", "", "policy file or directory")
	f.StringVar(&cfg.configPath, "config", "", "policy config file with policies, sources and plugins")
	f.StringVarP(&cfg.outDir, "output", "o", "", "output directory")
	f.BoolVar(&cfg.verifyCedar, "verify-cedar", false, "parse generated Cedar before writing it")
	f.BoolVar(&cfg.watch, "watch", false, "recompile when policy files change")
	f.DurationVar(&cfg.debounce, "debounce", defaultDebounce, "quiet period before recompiling in watch mode")
	f.StringVar(&cfg.metricsAddr, "metrics-addr", "", "metrics/health HTTP address in watch mode (empty = disabled)")

	return cmd
}

// runTranspileWithDeps compiles the policies once, or keeps recompiling in
// watch mode until ctx is done.
func runTranspileWithDeps(ctx context.Context, cfg *transpileConfig, cmd *cobra.Command, deps *TranspileDeps) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if deps == nil {
		deps = &TranspileDeps{}
	}
	deps.defaults()
	if ctx == nil {
		ctx = context.Background()
	}

	pcfg, err := policyConfig(cfg.configPath, cfg.policyDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !cfg.watch {
		return transpileOnce(ctx, cfg, pcfg, deps, out)
	}

	var ready atomic.Bool
	rebuild := func() error {
		err := transpileOnce(ctx, cfg, pcfg, deps, out)
		observability.RecordRebuild(err)
		ready.Store(err == nil)
		return err
	}
	if err := rebuild(); err != nil {
		slog.ErrorContext(ctx, "transpile failed", "error", err)
	}

	if cfg.metricsAddr != "" {
		srv := observability.NewServer(cfg.metricsAddr, nil, ready.Load)
		if _, err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				slog.Warn("failed to stop observability server", "error", err)
			}
		}()
	}

	return watchPolicies(ctx, cfg, watchRoots(cfg, pcfg), deps.Ready, rebuild)
}

func transpileOnce(ctx context.Context, cfg *transpileConfig, pcfg *config.Config, deps *TranspileDeps, out io.Writer) error {
	ld, err := loader.New(pcfg, loader.WithRunner(deps.Runner))
	if err != nil {
		return err
	}
	defer func() { _ = ld.Close() }()

	sources, err := ld.Load(ctx)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(pcfg, plugin.BuiltinOptions{VerifyCedar: cfg.verifyCedar})
	if err != nil {
		return err
	}
	orch := evaluate.New(registry)
	defer func() { _ = orch.Close() }()

	compiled, err := orch.Compile(sources)
	if err != nil {
		return err
	}

	emitter := transpile.NewEmitter("")
	for _, cp := range compiled {
		path, err := emitter.Write(cp, cfg.outDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
	}
	return nil
}

// watchRoots lists the local paths whose changes trigger a recompile.
func watchRoots(cfg *transpileConfig, pcfg *config.Config) []string {
	var roots []string
	if cfg.configPath != "" {
		roots = append(roots, cfg.configPath)
	}
	for _, src := range pcfg.Sources {
		if src.Type == config.SourcePath {
			roots = append(roots, src.Location)
		}
	}
	return roots
}

// watchPolicies runs rebuild after each burst of changes under roots.
// Changes inside the output directory are ignored.
func watchPolicies(ctx context.Context, cfg *transpileConfig, roots []string, ready func(), rebuild func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	outDir, _ := filepath.Abs(cfg.outDir)
	for _, root := range roots {
		if err := addWatch(watcher, root, outDir); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "watching policies", "paths", roots)
	ready()

	timer := time.NewTimer(cfg.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if within(event.Name, outDir) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatch(watcher, event.Name, outDir)
				}
			}
			slog.DebugContext(ctx, "policy change detected", "path", event.Name, "op", event.Op.String())
			timer.Reset(cfg.debounce)

		case <-timer.C:
			if err := rebuild(); err != nil {
				slog.ErrorContext(ctx, "transpile failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			slog.ErrorContext(ctx, "file watcher error", "error", err)
		}
	}
}

// addWatch registers path, or every directory below it. fsnotify does not
// recurse on its own.
func addWatch(w *fsnotify.Watcher, path, skip string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	if !info.IsDir() {
		return w.Add(filepath.Dir(path))
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if abs, _ := filepath.Abs(p); within(abs, skip) || (p != path && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func within(path, dir string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, abs)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
