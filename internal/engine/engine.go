// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package engine evaluates compiled policies against input records by
// invoking the backend executables.
package engine

import (
	"context"
	"sync"

	"github.com/gobwas/glob"

	"github.com/ansible/ansible-policy/internal/input"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/internal/result"
)

// Engine evaluates one compiled policy against one record.
type Engine interface {
	// Language reports the backend language the engine accepts.
	Language() types.Language
	// Evaluate returns the outcome. A record whose type does not match the
	// policy target yields a not-applicable result, not an error.
	Evaluate(ctx context.Context, p *types.CompiledPolicy, r *input.Record) (*result.SingleResult, error)
}

// taskResultType is evaluated by policies targeting tasks.
const taskResultType = "task_result"

var targetGlobs sync.Map // target pattern -> glob.Glob

// TargetMatches reports whether a record of recordType is in scope of a
// policy targeting target. Target may be a glob such as "*".
func TargetMatches(target, recordType string) bool {
	if recordType == taskResultType {
		recordType = types.TargetTask
	}
	if target == "" || target == recordType {
		return true
	}
	g, ok := targetGlobs.Load(target)
	if !ok {
		compiled, err := glob.Compile(target)
		if err != nil {
			return false
		}
		g, _ = targetGlobs.LoadOrStore(target, compiled)
	}
	return g.(glob.Glob).Match(recordType)
}

// verdictOrder is the order result keys are consulted in. The first key
// present decides the validation.
var verdictOrder = []struct {
	kind      types.ActionKind
	failsWhen bool
}{
	{types.ActionDeny, true},
	{types.ActionAllow, false},
	{types.ActionWarn, true},
	{types.ActionInfo, true},
	{types.ActionIgnore, false},
	{types.ActionPermit, false},
	{types.ActionForbid, true},
}

// kindOrder is the order result keys are consulted in for the reported kind.
var kindOrder = []types.ActionKind{
	types.ActionDeny, types.ActionAllow, types.ActionInfo, types.ActionWarn,
	types.ActionIgnore, types.ActionPermit, types.ActionForbid,
}

// Decide maps a backend result document to a validation and action kind.
// A document with none of the known keys is a success with no kind.
func Decide(value map[string]any) (result.Validation, types.ActionKind) {
	validation := result.Success
	for _, v := range verdictOrder {
		got, ok := value[string(v.kind)]
		if !ok {
			continue
		}
		if truthy(got) == v.failsWhen {
			validation = result.Failure
		}
		break
	}

	var kind types.ActionKind
	for _, k := range kindOrder {
		if _, ok := value[string(k)]; ok {
			kind = k
			break
		}
	}
	return validation, kind
}

// truthy follows the usual dynamic-language rules: false, zero, empty and
// null are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// newResult fills the record and policy identity of a result.
func newResult(p *types.CompiledPolicy, r *input.Record) *result.SingleResult {
	return &result.SingleResult{
		TargetType: r.Type,
		TargetName: r.Name,
		Filepath:   r.Filepath,
		PolicyName: p.Name,
		Lines:      r.Lines,
		Metadata:   r.Metadata,
	}
}

// notApplicable is the result for a record outside the policy target.
func notApplicable(p *types.CompiledPolicy, r *input.Record) *result.SingleResult {
	sr := newResult(p, r)
	sr.Validation = result.NotApplicable
	return sr
}
