// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/input"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/internal/result"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// DefaultOPAExecutable is the OPA command looked up on PATH.
const DefaultOPAExecutable = "opa"

// Option configures an engine.
type Option func(*options)

type options struct {
	runner     Runner
	emitter    *transpile.Emitter
	executable string
	dataPath   string
	logger     *slog.Logger
}

// WithRunner sets the process runner. Defaults to ExecRunner.
func WithRunner(r Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithEmitter sets the emitter used to persist policies and request files.
func WithEmitter(e *transpile.Emitter) Option {
	return func(o *options) { o.emitter = e }
}

// WithExecutable overrides the backend command name or path.
func WithExecutable(path string) Option {
	return func(o *options) { o.executable = path }
}

// WithExternalData passes an extra data document to every Rego evaluation.
func WithExternalData(path string) Option {
	return func(o *options) { o.dataPath = path }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(executable string, opts []Option) options {
	o := options{executable: executable}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = ExecRunner{}
	}
	if o.emitter == nil {
		o.emitter = transpile.NewEmitter("")
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Rego evaluates Rego policies with `opa eval`.
type Rego struct {
	opts options
}

// NewRego returns a Rego engine.
func NewRego(opts ...Option) *Rego {
	return &Rego{opts: newOptions(DefaultOPAExecutable, opts)}
}

var _ Engine = (*Rego)(nil)

// Language implements Engine.
func (*Rego) Language() types.Language { return types.LanguageRego }

// opaOutput is the JSON document printed by `opa eval`.
type opaOutput struct {
	Result []struct {
		Expressions []struct {
			Value map[string]any `json:"value"`
		} `json:"expressions"`
	} `json:"result"`
}

// Evaluate implements Engine.
func (e *Rego) Evaluate(ctx context.Context, p *types.CompiledPolicy, r *input.Record) (*result.SingleResult, error) {
	if !TargetMatches(p.Metadata.Target, r.Type) {
		return notApplicable(p, r), nil
	}

	pkg := p.Metadata.Package
	if pkg == "" {
		pkg = types.PackageName(p.Body)
	}
	if pkg == "" {
		return nil, oops.Code(errutil.CodeBackendInvocation).
			With("policy", p.Name).
			Errorf("rego policy %q declares no package", p.Name)
	}

	policyPath, err := e.opts.emitter.Ensure(p)
	if err != nil {
		return nil, oops.Code(errutil.CodeBackendInvocation).With("policy", p.Name).Wrap(err)
	}

	doc, err := json.Marshal(r.Data)
	if err != nil {
		return nil, oops.Code(errutil.CodeBackendInvocation).
			With("policy", p.Name).
			Wrapf(err, "encoding input record")
	}

	args := []string{"eval", "--data", policyPath}
	if e.opts.dataPath != "" {
		args = append(args, "--data", e.opts.dataPath)
	}
	args = append(args, "--stdin-input", "data."+pkg)
	cmd := Command{Name: e.opts.executable, Args: args, Stdin: bytes.NewReader(doc)}

	out, err := e.opts.runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	e.opts.logger.DebugContext(ctx, "opa eval",
		"command", cmd.String(),
		"exit_code", out.ExitCode,
		"stdout", string(out.Stdout),
		"stderr", string(out.Stderr),
	)

	value, err := parseOPAOutput(out)
	if err != nil {
		return nil, oops.Code(errutil.CodeBackendInvocation).
			With("policy", p.Name).
			With("command", cmd.String()).
			With("stdout", string(out.Stdout)).
			With("stderr", string(out.Stderr)).
			With("exit_code", out.ExitCode).
			Wrap(err)
	}

	message := strings.TrimSpace(string(out.Stderr))
	sr := newResult(p, r)
	sr.Matched = true
	sr.Validation, sr.ActionKind = Decide(value)
	sr.Message = message
	sr.Detail = map[string]any{"value": value, "message": message}
	return sr, nil
}

func parseOPAOutput(out Output) (map[string]any, error) {
	if out.ExitCode != 0 {
		return nil, oops.Errorf("opa eval exited with code %d", out.ExitCode)
	}
	var doc opaOutput
	if err := json.Unmarshal(out.Stdout, &doc); err != nil {
		return nil, oops.Wrapf(err, "decoding opa eval output")
	}
	if len(doc.Result) == 0 {
		return nil, oops.Errorf("opa eval output has no result")
	}
	if len(doc.Result[0].Expressions) == 0 {
		return nil, oops.Errorf("opa eval result has no expressions")
	}
	value := doc.Result[0].Expressions[0].Value
	if value == nil {
		value = map[string]any{}
	}
	return value, nil
}
