// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package engine

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/input"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/internal/result"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// DefaultCedarExecutable is the Cedar CLI looked up on PATH.
const DefaultCedarExecutable = "cedar"

// Cedar evaluates Cedar policies with `cedar authorize`.
type Cedar struct {
	opts options
}

// NewCedar returns a Cedar engine.
func NewCedar(opts ...Option) *Cedar {
	return &Cedar{opts: newOptions(DefaultCedarExecutable, opts)}
}

var _ Engine = (*Cedar)(nil)

// Language implements Engine.
func (*Cedar) Language() types.Language { return types.LanguageCedar }

// Evaluate implements Engine. A request naming several actions is allowed
// only when every action is allowed.
func (e *Cedar) Evaluate(ctx context.Context, p *types.CompiledPolicy, r *input.Record) (*result.SingleResult, error) {
	if !TargetMatches(p.Metadata.Target, r.Type) {
		return notApplicable(p, r), nil
	}

	req, err := input.CedarRequestOf(r)
	if err != nil {
		return nil, oops.Code(errutil.CodeBackendInvocation).
			With("policy", p.Name).
			With("target", r.Name).
			Wrapf(err, "reading cedar request")
	}

	policyPath, err := e.opts.emitter.Ensure(p)
	if err != nil {
		return nil, oops.Code(errutil.CodeBackendInvocation).With("policy", p.Name).Wrap(err)
	}
	entitiesPath, err := e.scratchJSON("entities", req.Entities)
	if err != nil {
		return nil, err
	}
	var contextPath string
	if req.Context != nil {
		if contextPath, err = e.scratchJSON("context", req.Context); err != nil {
			return nil, err
		}
	}

	actions := req.Actions
	if len(actions) == 0 {
		actions = []string{""}
	}
	allowed := true
	for _, action := range actions {
		ok, err := e.authorize(ctx, p, policyPath, entitiesPath, contextPath, req, action)
		if err != nil {
			return nil, err
		}
		if !ok {
			allowed = false
			break
		}
	}

	sr := newResult(p, r)
	sr.Matched = true
	sr.ActionKind = types.ActionAllow
	sr.Validation = result.Success
	if !allowed {
		sr.Validation = result.Failure
	}
	sr.Detail = map[string]any{"allowed": allowed}
	return sr, nil
}

func (e *Cedar) authorize(
	ctx context.Context,
	p *types.CompiledPolicy,
	policyPath, entitiesPath, contextPath string,
	req *input.CedarRequest,
	action string,
) (bool, error) {
	args := []string{
		"authorize",
		"--policies", policyPath,
		"--entities", entitiesPath,
		"--principal", req.Principal,
		"--action", action,
		"--resource", req.Resource,
	}
	if contextPath != "" {
		args = append(args, "--context", contextPath)
	}
	cmd := Command{Name: e.opts.executable, Args: args}

	out, err := e.opts.runner.Run(ctx, cmd)
	if err != nil {
		return false, err
	}
	e.opts.logger.DebugContext(ctx, "cedar authorize",
		"command", cmd.String(),
		"exit_code", out.ExitCode,
		"stdout", string(out.Stdout),
		"stderr", string(out.Stderr),
	)

	// The CLI exits non-zero on DENY; only diagnostics on stderr mean failure.
	if out.ExitCode != 0 && len(bytes.TrimSpace(out.Stderr)) > 0 {
		return false, oops.Code(errutil.CodeBackendInvocation).
			With("policy", p.Name).
			With("command", cmd.String()).
			With("stdout", string(out.Stdout)).
			With("stderr", string(out.Stderr)).
			With("exit_code", out.ExitCode).
			Errorf("cedar authorize exited with code %d", out.ExitCode)
	}
	return bytes.Contains(out.Stdout, []byte("ALLOW")), nil
}

func (e *Cedar) scratchJSON(prefix string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", oops.Code(errutil.CodeBackendInvocation).Wrapf(err, "encoding cedar %s", prefix)
	}
	path, err := e.opts.emitter.ScratchFile(prefix, ".json", data)
	if err != nil {
		return "", oops.Code(errutil.CodeBackendInvocation).Wrap(err)
	}
	return path, nil
}
