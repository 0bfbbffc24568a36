// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/ansible/ansible-policy/internal/config"
	"github.com/ansible/ansible-policy/internal/engine"
	"github.com/ansible/ansible-policy/internal/evaluate"
	"github.com/ansible/ansible-policy/internal/loader"
	"github.com/ansible/ansible-policy/internal/plugin"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
	"github.com/ansible/ansible-policy/internal/result"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// errViolation is returned when the evaluation found a violation. The
// result has already been written, so main exits 1 without logging it.
var errViolation = errors.New("policy violation detected")

// evalConfig holds configuration for the eval command.
type evalConfig struct {
	project         string
	policyDir       string
	configPath      string
	format          string
	output          string
	workers         int
	externalData    string
	opa             string
	cedar           string
	verifyCedar     bool
	installDir      string
	force           bool
	retries         uint64
	retryDelay      time.Duration
	metricsTextfile string
}

// Validate checks that the configuration is valid.
func (cfg *evalConfig) Validate() error {
	if cfg.project == "" {
		return fmt.Errorf("project is required")
	}
	if cfg.policyDir == "" && cfg.configPath == "" {
		return fmt.Errorf("one of policy-dir or config is required")
	}
	if cfg.policyDir != "" && cfg.configPath != "" {
		return fmt.Errorf("policy-dir and config are mutually exclusive")
	}
	if !slices.Contains(result.Formats, cfg.format) {
		return fmt.Errorf("format must be one of %s, got %q", strings.Join(result.Formats, ", "), cfg.format)
	}
	if cfg.workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.workers)
	}
	if cfg.retryDelay <= 0 {
		return fmt.Errorf("retry-delay must be positive, got %s", cfg.retryDelay)
	}
	return nil
}

// Default values for eval command flags.
const (
	defaultFormat     = result.FormatPlain
	defaultWorkers    = 1
	defaultRetries    = 0
	defaultRetryDelay = time.Second
)

// NewEvalCmd creates the eval subcommand.
func NewEvalCmd() *cobra.Command {
	cfg := &evalConfig{}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate Ansible content against policies",
		Long: `Load the enabled policies, transpile policybooks, evaluate every
policy against the matching targets of the project and print the result.
Exits with code 1 when a violation was detected.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvalWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.project, "project", "p", "", "target Ansible content (directory or file) or input record file")
	f.StringVar(&cfg.policyDir, "policy-dir", "", "policy file or directory")
	f.StringVar(&cfg.configPath, "config", "", "policy config file with policies, sources and plugins")
	f.StringVarP(&cfg.format, "format", "f", defaultFormat, "output format ("+strings.Join(result.Formats, ", ")+")")
	f.StringVarP(&cfg.output, "output", "o", "", "write the result to this file instead of stdout")
	f.IntVar(&cfg.workers, "workers", defaultWorkers, "number of concurrent policy evaluations")
	f.StringVar(&cfg.externalData, "external-data", "", "extra data file passed to opa")
	f.StringVar(&cfg.opa, "opa", engine.DefaultOPAExecutable, "opa executable")
	f.StringVar(&cfg.cedar, "cedar", engine.DefaultCedarExecutable, "cedar executable")
	f.BoolVar(&cfg.verifyCedar, "verify-cedar", false, "parse generated Cedar before evaluation")
	f.StringVar(&cfg.installDir, "install-dir", "", "directory policy sources are installed into (default: temporary)")
	f.BoolVar(&cfg.force, "force", false, "reinstall sources that are already installed")
	f.Uint64Var(&cfg.retries, "retries", defaultRetries, "retries after a backend invocation failure")
	f.DurationVar(&cfg.retryDelay, "retry-delay", defaultRetryDelay, "delay between retries")
	f.StringVar(&cfg.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")

	return cmd
}

// runEvalWithDeps runs one evaluation with injectable dependencies.
// If deps is nil, default implementations are used.
func runEvalWithDeps(ctx context.Context, cfg *evalConfig, cmd *cobra.Command, deps *EvalDeps) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if deps == nil {
		deps = &EvalDeps{}
	}
	deps.defaults()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.Default()

	pcfg, err := policyConfig(cfg.configPath, cfg.policyDir)
	if err != nil {
		return err
	}

	lopts := []loader.Option{
		loader.WithRunner(deps.Runner),
		loader.WithCloner(deps.Cloner),
		loader.WithForce(cfg.force),
		loader.WithLogger(logger),
	}
	if cfg.installDir != "" {
		lopts = append(lopts, loader.WithInstallDir(cfg.installDir))
	}
	ld, err := loader.New(pcfg, lopts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ld.Close(); cerr != nil {
			logger.Warn("failed to clean up policy sources", "error", cerr)
		}
	}()

	sources, err := ld.Load(ctx)
	if err != nil {
		return err
	}

	emitter := transpile.NewEmitter("")
	defer func() {
		if cerr := emitter.Close(); cerr != nil {
			logger.Warn("failed to remove generated policies", "error", cerr)
		}
	}()

	eopts := []engine.Option{
		engine.WithRunner(deps.Runner),
		engine.WithEmitter(emitter),
		engine.WithLogger(logger),
	}
	if cfg.externalData != "" {
		eopts = append(eopts, engine.WithExternalData(cfg.externalData))
	}
	registry, err := buildRegistry(pcfg, plugin.BuiltinOptions{
		Engine:      eopts,
		OPA:         cfg.opa,
		Cedar:       cfg.cedar,
		VerifyCedar: cfg.verifyCedar,
	})
	if err != nil {
		return err
	}

	orch := evaluate.New(registry,
		evaluate.WithWorkers(cfg.workers),
		evaluate.WithEmitter(emitter),
		evaluate.WithLogger(logger),
	)

	backoff := retry.WithMaxRetries(cfg.retries, retry.NewConstant(cfg.retryDelay))
	res, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (*result.EvaluationResult, error) {
		res, err := orch.Run(ctx, sources, cfg.project)
		if errutil.HasCode(err, errutil.CodeBackendInvocation) {
			logger.WarnContext(ctx, "backend invocation failed", "error", err)
			return nil, retry.RetryableError(err)
		}
		return res, err
	})

	if cfg.metricsTextfile != "" {
		if werr := prometheus.WriteToTextfile(cfg.metricsTextfile, deps.Gatherer); werr != nil {
			logger.Warn("failed to write metrics", "path", cfg.metricsTextfile, "error", werr)
		}
	}
	if err != nil {
		return err
	}

	if err := writeResult(cmd, cfg, res); err != nil {
		return err
	}
	if res.Summary.Policies.ViolationDetected > 0 {
		return errViolation
	}
	return nil
}

// policyConfig reads the config file, or builds a config enabling every
// policy under policyDir.
func policyConfig(configPath, policyDir string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	if _, err := os.Stat(policyDir); err != nil {
		return nil, fmt.Errorf("policy-dir: %w", err)
	}
	return config.ForPath(policyDir), nil
}

// buildRegistry combines the built-in plugins with the configured bundles.
func buildRegistry(pcfg *config.Config, opts plugin.BuiltinOptions) (*plugin.Registry, error) {
	bundles, err := plugin.LoadConfigured(pcfg.Plugins, opts)
	if err != nil {
		return nil, err
	}
	return plugin.NewRegistry(append(plugin.Builtins(opts), bundles...)...)
}

func writeResult(cmd *cobra.Command, cfg *evalConfig, res *result.EvaluationResult) error {
	var w io.Writer = cmd.OutOrStdout()
	if cfg.output != "" {
		f, err := os.Create(cfg.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	formatter, err := result.NewFormatter(cfg.format, w)
	if err != nil {
		return err
	}
	if wd, err := os.Getwd(); err == nil {
		formatter.BaseDir = wd
	}
	return formatter.Write(w, res)
}
