// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package result

import (
	"context"

	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/pkg/errutil"
)

// AddSingleResult folds sr into the tree. It locates or creates the file and
// policy entries, appends a target unless sr is not applicable, then
// recomputes violations bottom-up and the summary from scratch.
func (r *EvaluationResult) AddSingleResult(sr *SingleResult) error {
	if err := checkSingleResult(sr); err != nil {
		return err
	}

	file := r.file(sr.Filepath)
	if file == nil {
		file = &FileResult{Path: sr.Filepath, Metadata: sr.Metadata}
		r.Files = append(r.Files, file)
	}

	policy := file.policy(sr.PolicyName)
	if policy == nil {
		policy = &PolicyResult{PolicyName: sr.PolicyName, TargetType: sr.TargetType}
		file.Policies = append(file.Policies, policy)
	}

	if sr.Matched {
		policy.Targets = append(policy.Targets, &TargetResult{
			Name:       sr.TargetName,
			Lines:      sr.Lines,
			Validated:  sr.Validation,
			ActionKind: sr.ActionKind,
			Message:    sr.Message,
		})
	}

	policy.Violation = false
	for _, t := range policy.Targets {
		if t.violates() {
			policy.Violation = true
			break
		}
	}
	file.Violation = false
	for _, p := range file.Policies {
		if p.Violation {
			file.Violation = true
			break
		}
	}

	r.Summary = summarize(r.Files)
	return nil
}

func checkSingleResult(sr *SingleResult) error {
	switch {
	case sr == nil:
		return oops.Code(errutil.CodeAggregationInvariant).Errorf("nil result")
	case sr.Filepath == "":
		return oops.Code(errutil.CodeAggregationInvariant).
			With("policy", sr.PolicyName).
			Errorf("result has no file path")
	case sr.PolicyName == "":
		return oops.Code(errutil.CodeAggregationInvariant).
			With("filepath", sr.Filepath).
			Errorf("result has no policy name")
	case sr.Matched && sr.Validation == NotApplicable:
		return oops.Code(errutil.CodeAggregationInvariant).
			With("filepath", sr.Filepath, "policy", sr.PolicyName).
			Errorf("matched result has no validation")
	}
	return nil
}

func summarize(files []*FileResult) Summary {
	var s Summary
	seenPolicy := make(map[string]bool)
	seenViolation := make(map[string]bool)
	seenFile := make(map[string]bool)
	violatedFiles := 0

	s.Policies.List = []string{}
	s.Files.List = []string{}
	for _, f := range files {
		for _, p := range f.Policies {
			if !seenPolicy[p.PolicyName] {
				seenPolicy[p.PolicyName] = true
				s.Policies.List = append(s.Policies.List, p.PolicyName)
			}
			if p.Violation && !seenViolation[p.PolicyName] {
				seenViolation[p.PolicyName] = true
				s.Policies.ViolationDetected++
			}
		}
		if f.Violation {
			violatedFiles++
		}
		if !seenFile[f.Path] {
			seenFile[f.Path] = true
			s.Files.List = append(s.Files.List, f.Path)
		}
	}
	s.Policies.Total = len(s.Policies.List)
	s.Files.Total = len(files)
	s.Files.Validated = len(files) - violatedFiles
	s.Files.NotValidated = violatedFiles
	return s
}

// Summarizer folds the complete list of results of a run.
type Summarizer interface {
	Summarize(ctx context.Context, results []*SingleResult) (*EvaluationResult, error)
}

// DefaultSummarizer adds every result in order.
type DefaultSummarizer struct{}

var _ Summarizer = DefaultSummarizer{}

// Summarize implements Summarizer.
func (DefaultSummarizer) Summarize(ctx context.Context, results []*SingleResult) (*EvaluationResult, error) {
	out := &EvaluationResult{Summary: summarize(nil)}
	for _, sr := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := out.AddSingleResult(sr); err != nil {
			return nil, err
		}
	}
	return out, nil
}
