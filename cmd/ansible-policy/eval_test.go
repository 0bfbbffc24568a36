// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansible/ansible-policy/internal/engine"
	"github.com/ansible/ansible-policy/internal/result"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

func TestEvalCommand_Flags(t *testing.T) {
	cmd := NewEvalCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, flag := range []string{
		"--project", "--policy-dir", "--config", "--format", "--output", "--workers",
		"--external-data", "--opa", "--cedar", "--verify-cedar", "--install-dir",
		"--force", "--retries", "--retry-delay", "--metrics-textfile",
	} {
		assert.Contains(t, output, flag, "Help missing %q flag", flag)
	}
}

func TestEvalCommand_DefaultValues(t *testing.T) {
	cmd := NewEvalCmd()

	format, err := cmd.Flags().GetString("format")
	require.NoError(t, err)
	assert.Equal(t, "plain", format)

	workers, err := cmd.Flags().GetInt("workers")
	require.NoError(t, err)
	assert.Equal(t, 1, workers)

	opa, err := cmd.Flags().GetString("opa")
	require.NoError(t, err)
	assert.Equal(t, "opa", opa)

	retries, err := cmd.Flags().GetUint64("retries")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), retries)

	delay, err := cmd.Flags().GetDuration("retry-delay")
	require.NoError(t, err)
	assert.Equal(t, time.Second, delay)
}

func TestEvalConfig_Validate(t *testing.T) {
	valid := func() *evalConfig {
		return &evalConfig{project: "site.yml", policyDir: "policies", format: "plain", workers: 1, retryDelay: time.Second}
	}

	tests := []struct {
		name    string
		mutate  func(*evalConfig)
		wantErr string
	}{
		{"valid", func(*evalConfig) {}, ""},
		{"missing project", func(c *evalConfig) { c.project = "" }, "project is required"},
		{"missing policies", func(c *evalConfig) { c.policyDir = "" }, "one of policy-dir or config"},
		{"both policy sources", func(c *evalConfig) { c.configPath = "ansible-policy.cfg" }, "mutually exclusive"},
		{"bad format", func(c *evalConfig) { c.format = "xml" }, "format must be one of"},
		{"no workers", func(c *evalConfig) { c.workers = 0 }, "workers must be at least 1"},
		{"no retry delay", func(c *evalConfig) { c.retryDelay = 0 }, "retry-delay must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func evalFixture(t *testing.T, becomeUser string) (policyDir, project string) {
	t.Helper()
	dir := t.TempDir()
	policyDir = filepath.Join(dir, "policies")
	writeFile(t, filepath.Join(policyDir, "task_checks.yml"), taskBook)
	project = filepath.Join(dir, "project")
	writeFile(t, filepath.Join(project, "site.yml"), fmt.Sprintf(sitePlaybook, becomeUser))
	return policyDir, project
}

func TestRunEval_Violation(t *testing.T) {
	policyDir, project := evalFixture(t, "root")
	cmd, buf := newTestCmd()
	cfg := &evalConfig{
		project: project, policyDir: policyDir, format: result.FormatJSON,
		workers: 2, opa: "opa", cedar: "cedar", retryDelay: time.Millisecond,
	}

	err := runEvalWithDeps(context.Background(), cfg, cmd, &EvalDeps{Runner: fakeOPA(t)})
	require.ErrorIs(t, err, errViolation)

	var res result.EvaluationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, 2, res.Summary.Policies.Total)
	assert.Equal(t, 1, res.Summary.Policies.ViolationDetected)
	require.Len(t, res.Files, 1)
	assert.True(t, res.Files[0].Violation)
}

func TestRunEval_NoViolation(t *testing.T) {
	policyDir, project := evalFixture(t, "trusted_user")
	cmd, buf := newTestCmd()
	out := filepath.Join(t.TempDir(), "result.json")
	metrics := filepath.Join(t.TempDir(), "metrics.prom")
	cfg := &evalConfig{
		project: project, policyDir: policyDir, format: result.FormatJSON, output: out,
		workers: 1, opa: "opa", cedar: "cedar", retryDelay: time.Millisecond,
		metricsTextfile: metrics,
	}

	require.NoError(t, runEvalWithDeps(context.Background(), cfg, cmd, &EvalDeps{
		Runner:   fakeOPA(t),
		Gatherer: prometheus.DefaultGatherer,
	}))
	assert.Empty(t, buf.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var res result.EvaluationResult
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, 0, res.Summary.Policies.ViolationDetected)

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "ansible_policy_evaluations_total")
}

func TestRunEval_RetriesBackendFailures(t *testing.T) {
	policyDir, project := evalFixture(t, "root")
	cmd, _ := newTestCmd()

	var calls atomic.Int32
	opa := fakeOPA(t)
	flaky := engine.RunnerFunc(func(ctx context.Context, c engine.Command) (engine.Output, error) {
		if calls.Add(1) == 1 {
			return engine.Output{ExitCode: 2, Stderr: []byte("opa: crashed")}, nil
		}
		return opa.Run(ctx, c)
	})
	cfg := &evalConfig{
		project: project, policyDir: policyDir, format: result.FormatJSON,
		workers: 1, opa: "opa", cedar: "cedar", retries: 1, retryDelay: time.Millisecond,
	}

	err := runEvalWithDeps(context.Background(), cfg, cmd, &EvalDeps{Runner: flaky})
	require.ErrorIs(t, err, errViolation)
	assert.Greater(t, calls.Load(), int32(1))
}

func TestRunEval_BackendFailureWithoutRetries(t *testing.T) {
	policyDir, project := evalFixture(t, "root")
	cmd, buf := newTestCmd()
	broken := engine.RunnerFunc(func(context.Context, engine.Command) (engine.Output, error) {
		return engine.Output{ExitCode: 1, Stderr: []byte("opa: not found")}, nil
	})
	cfg := &evalConfig{
		project: project, policyDir: policyDir, format: result.FormatJSON,
		workers: 1, opa: "opa", cedar: "cedar", retryDelay: time.Millisecond,
	}

	err := runEvalWithDeps(context.Background(), cfg, cmd, &EvalDeps{Runner: broken})
	errutil.AssertErrorCode(t, err, errutil.CodeBackendInvocation)
	assert.Empty(t, buf.String())
}

func TestRunEval_MissingPolicyDir(t *testing.T) {
	cmd, _ := newTestCmd()
	cfg := &evalConfig{
		project: t.TempDir(), policyDir: filepath.Join(t.TempDir(), "nope"), format: result.FormatPlain,
		workers: 1, retryDelay: time.Second,
	}
	err := runEvalWithDeps(context.Background(), cfg, cmd, &EvalDeps{Runner: fakeOPA(t)})
	assert.ErrorContains(t, err, "policy-dir")
}
