// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package result folds per-target evaluation outcomes into a file, policy,
// target tree with violation flags and summary counts.
package result

import (
	"encoding/json"
	"fmt"

	"github.com/ansible/ansible-policy/internal/policy/types"
)

// Validation is the outcome of one policy on one target.
type Validation int

// Validation outcomes.
const (
	NotApplicable Validation = iota
	Success
	Failure
)

func (v Validation) String() string {
	switch v {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "not-applicable"
	}
}

// MarshalJSON encodes success as true, failure as false and not-applicable
// as null.
func (v Validation) MarshalJSON() ([]byte, error) {
	switch v {
	case Success:
		return []byte("true"), nil
	case Failure:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Validation) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decoding validation: %w", err)
	}
	switch {
	case b == nil:
		*v = NotApplicable
	case *b:
		*v = Success
	default:
		*v = Failure
	}
	return nil
}

// SingleResult is one policy evaluated against one target. Engines create
// it once and never change it.
type SingleResult struct {
	TargetType string           `json:"target_type"`
	TargetName string           `json:"target_name"`
	Filepath   string           `json:"filepath"`
	PolicyName string           `json:"policy_name"`
	Validation Validation       `json:"validation"`
	ActionKind types.ActionKind `json:"action_type,omitempty"`
	Matched    bool             `json:"target_type_matched"`
	Message    string           `json:"message,omitempty"`
	Detail     map[string]any   `json:"detail,omitempty"`
	Lines      *types.LineSpan  `json:"lines,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

// TargetResult is the outcome for one target of a policy.
type TargetResult struct {
	Name       string           `json:"name"`
	Lines      *types.LineSpan  `json:"lines,omitempty"`
	Validated  Validation       `json:"validated"`
	ActionKind types.ActionKind `json:"action_type"`
	Message    string           `json:"message"`
}

// violates reports whether the target fails a hard action.
func (t *TargetResult) violates() bool {
	return t.Validated == Failure && t.ActionKind.IsHard()
}

// PolicyResult groups the targets one policy was evaluated on.
type PolicyResult struct {
	PolicyName string          `json:"policy_name"`
	TargetType string          `json:"target_type"`
	Violation  bool            `json:"violation"`
	Targets    []*TargetResult `json:"targets"`
}

// FileResult groups the policies evaluated on one file.
type FileResult struct {
	Path      string          `json:"path"`
	Violation bool            `json:"violation"`
	Policies  []*PolicyResult `json:"policies"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

func (f *FileResult) policy(name string) *PolicyResult {
	for _, p := range f.Policies {
		if p.PolicyName == name {
			return p
		}
	}
	return nil
}

// PolicySummary counts distinct policy names.
type PolicySummary struct {
	Total             int      `json:"total"`
	ViolationDetected int      `json:"violation_detected"`
	List              []string `json:"list"`
}

// FileSummary counts files.
type FileSummary struct {
	Total        int      `json:"total"`
	Validated    int      `json:"validated"`
	NotValidated int      `json:"not_validated"`
	List         []string `json:"list"`
}

// Summary is derived from the file list.
type Summary struct {
	Policies PolicySummary `json:"policies"`
	Files    FileSummary   `json:"files"`
}

// EvaluationResult is the aggregate of one run.
type EvaluationResult struct {
	Summary Summary       `json:"summary"`
	Files   []*FileResult `json:"files"`
}

// Violation reports whether any file has a violation.
func (r *EvaluationResult) Violation() bool {
	for _, f := range r.Files {
		if f.Violation {
			return true
		}
	}
	return false
}

func (r *EvaluationResult) file(path string) *FileResult {
	for _, f := range r.Files {
		if f.Path == path {
			return f
		}
	}
	return nil
}
