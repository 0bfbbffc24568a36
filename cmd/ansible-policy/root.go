// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ansible/ansible-policy/internal/logging"
	"github.com/ansible/ansible-policy/internal/xdg"
)

const serviceName = "ansible-policy"

// Default values for global flags.
const (
	defaultLogFormat = logging.FormatText
	defaultLogLevel  = "warn"
)

// rootConfig holds the global flags.
type rootConfig struct {
	settings  string
	logFormat string
	logLevel  string
}

// Validate checks that the configuration is valid.
func (cfg *rootConfig) Validate() error {
	if cfg.logFormat != logging.FormatJSON && cfg.logFormat != logging.FormatText {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.logFormat)
	}
	if _, err := logging.ParseLevel(cfg.logLevel); err != nil {
		return err
	}
	return nil
}

// NewRootCmd creates the root command for the ansible-policy CLI.
func NewRootCmd() *cobra.Command {
	cfg := &rootConfig{}

	cmd := &cobra.Command{
		Use:   "ansible-policy",
		Short: "Evaluate Ansible content against policies",
		Long: `ansible-policy compiles policybooks to Rego or Cedar and evaluates
playbooks, tasks and custom input records against them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCommand(cmd, cfg)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfg.settings, "settings", "", "settings file (default: XDG_CONFIG_HOME/ansible-policy/settings.yaml)")
	pf.StringVar(&cfg.logFormat, "log-format", defaultLogFormat, "log format (json or text)")
	pf.StringVar(&cfg.logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn or error)")

	cmd.AddCommand(NewEvalCmd())
	cmd.AddCommand(NewTranspileCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// setupCommand applies the settings file to flags the user did not set and
// installs the default logger.
func setupCommand(cmd *cobra.Command, cfg *rootConfig) error {
	path, explicit := cfg.settings, cfg.settings != ""
	if !explicit {
		path = xdg.SettingsPath()
	}
	if err := applySettings(cmd.Flags(), path, explicit); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.logLevel)
	logging.SetDefault(serviceName, version, cfg.logFormat, level, cmd.ErrOrStderr())
	return nil
}

// applySettings merges the YAML settings at path under the flags. Keys are
// flag names; flags set on the command line win. A missing file is an
// error only when it was named explicitly.
func applySettings(flags *pflag.FlagSet, path string, explicit bool) error {
	k := koanf.New(".")

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("settings file %s: %w", path, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("loading settings %s: %w", path, err)
	}
	fromFile := make(map[string]bool)
	for _, key := range k.Keys() {
		fromFile[key] = true
	}
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return fmt.Errorf("merging flags: %w", err)
	}

	var setErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if setErr != nil || f.Changed || !fromFile[f.Name] {
			return
		}
		if err := f.Value.Set(k.String(f.Name)); err != nil {
			setErr = fmt.Errorf("settings %s: %w", f.Name, err)
		}
	})
	return setErr
}
