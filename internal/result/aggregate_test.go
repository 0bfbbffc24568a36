// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package result_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/internal/result"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

func single(file, policy string, v result.Validation, kind types.ActionKind) *result.SingleResult {
	return &result.SingleResult{
		TargetType: types.TargetTask,
		TargetName: "task " + policy,
		Filepath:   file,
		PolicyName: policy,
		Validation: v,
		ActionKind: kind,
		Matched:    v != result.NotApplicable,
		Message:    policy + " says no",
	}
}


var _ = Describe("EvaluationResult", func() {
	var r *result.EvaluationResult

	BeforeEach(func() {
		r = &result.EvaluationResult{}
	})

	Describe("AddSingleResult", func() {
		It("creates the file, policy and target entries", func() {
			Expect(r.AddSingleResult(single("a.yml", "p1", result.Success, types.ActionDeny))).To(Succeed())

			Expect(r.Files).To(HaveLen(1))
			file := r.Files[0]
			Expect(file.Path).To(Equal("a.yml"))
			Expect(file.Violation).To(BeFalse())
			Expect(file.Policies).To(HaveLen(1))
			Expect(file.Policies[0].Targets).To(HaveLen(1))
			Expect(file.Policies[0].Targets[0].Validated).To(Equal(result.Success))
		})

		It("adds no target for a not-applicable result", func() {
			Expect(r.AddSingleResult(single("a.yml", "p1", result.NotApplicable, ""))).To(Succeed())

			Expect(r.Files[0].Policies).To(HaveLen(1))
			Expect(r.Files[0].Policies[0].Targets).To(BeEmpty())
			Expect(r.Summary.Policies.Total).To(Equal(1))
		})

		It("marks a failed deny as a violation at every level", func() {
			Expect(r.AddSingleResult(single("a.yml", "p1", result.Failure, types.ActionDeny))).To(Succeed())

			Expect(r.Files[0].Policies[0].Violation).To(BeTrue())
			Expect(r.Files[0].Violation).To(BeTrue())
			Expect(r.Violation()).To(BeTrue())
			Expect(r.Summary.Files.NotValidated).To(Equal(1))
			Expect(r.Summary.Policies.ViolationDetected).To(Equal(1))
		})

		DescribeTable("soft kinds never violate",
			func(kind types.ActionKind) {
				Expect(r.AddSingleResult(single("a.yml", "p1", result.Failure, kind))).To(Succeed())
				Expect(r.Files[0].Violation).To(BeFalse())
				Expect(r.Summary.Files.Validated).To(Equal(1))
			},
			Entry("warn", types.ActionWarn),
			Entry("info", types.ActionInfo),
			Entry("ignore", types.ActionIgnore),
		)

		It("keeps a violation once set", func() {
			Expect(r.AddSingleResult(single("a.yml", "p1", result.Failure, types.ActionAllow))).To(Succeed())
			Expect(r.AddSingleResult(single("a.yml", "p1", result.Success, types.ActionAllow))).To(Succeed())
			Expect(r.AddSingleResult(single("a.yml", "p2", result.Success, types.ActionDeny))).To(Succeed())

			Expect(r.Files[0].Policies[0].Violation).To(BeTrue())
			Expect(r.Files[0].Policies[1].Violation).To(BeFalse())
			Expect(r.Files[0].Violation).To(BeTrue())
		})

		It("keeps overlapping violating policies apart", func() {
			Expect(r.AddSingleResult(single("a.yml", "p1", result.Failure, types.ActionDeny))).To(Succeed())
			Expect(r.AddSingleResult(single("a.yml", "p2", result.Failure, types.ActionDeny))).To(Succeed())

			Expect(r.Files).To(HaveLen(1))
			Expect(r.Files[0].Policies).To(HaveLen(2))
			Expect(r.Files[0].Policies[0].Violation).To(BeTrue())
			Expect(r.Files[0].Policies[1].Violation).To(BeTrue())
			Expect(r.Summary.Policies.ViolationDetected).To(Equal(2))
			Expect(r.Summary.Policies.List).To(Equal([]string{"p1", "p2"}))
		})

		It("recomputes the summary over all files", func() {
			Expect(r.AddSingleResult(single("a.yml", "p1", result.Failure, types.ActionDeny))).To(Succeed())
			Expect(r.AddSingleResult(single("b.yml", "p1", result.Success, types.ActionDeny))).To(Succeed())
			Expect(r.AddSingleResult(single("c.yml", "p2", result.Success, types.ActionDeny))).To(Succeed())

			Expect(r.Summary.Files).To(Equal(result.FileSummary{
				Total: 3, Validated: 2, NotValidated: 1,
				List: []string{"a.yml", "b.yml", "c.yml"},
			}))
			Expect(r.Summary.Policies).To(Equal(result.PolicySummary{
				Total: 2, ViolationDetected: 1, List: []string{"p1", "p2"},
			}))
		})

		DescribeTable("rejects malformed results",
			func(sr *result.SingleResult) {
				err := r.AddSingleResult(sr)
				Expect(err).To(HaveOccurred())
				Expect(errutil.HasCode(err, errutil.CodeAggregationInvariant)).To(BeTrue())
				Expect(r.Files).To(BeEmpty())
			},
			Entry("nil", (*result.SingleResult)(nil)),
			Entry("no file path", single("", "p1", result.Success, types.ActionDeny)),
			Entry("no policy name", single("a.yml", "", result.Success, types.ActionDeny)),
			Entry("matched without validation", &result.SingleResult{
				Filepath: "a.yml", PolicyName: "p1", Matched: true,
			}),
		)
	})

	Describe("JSON encoding", func() {
		It("encodes validations as true, false and null", func() {
			Expect(r.AddSingleResult(single("a.yml", "ok", result.Success, types.ActionDeny))).To(Succeed())
			Expect(r.AddSingleResult(single("a.yml", "bad", result.Failure, types.ActionDeny))).To(Succeed())

			data, err := json.Marshal(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"validated":true`))
			Expect(string(data)).To(ContainSubstring(`"validated":false`))

			v, err := json.Marshal(result.NotApplicable)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(v)).To(Equal("null"))

			var back result.Validation
			Expect(json.Unmarshal([]byte("false"), &back)).To(Succeed())
			Expect(back).To(Equal(result.Failure))
			Expect(json.Unmarshal([]byte("null"), &back)).To(Succeed())
			Expect(back).To(Equal(result.NotApplicable))
		})
	})
})

var _ = Describe("DefaultSummarizer", func() {
	It("folds results in any order to the same verdicts", func() {
		results := []*result.SingleResult{
			single("a.yml", "p1", result.Failure, types.ActionDeny),
			single("a.yml", "p2", result.Success, types.ActionDeny),
			single("b.yml", "p1", result.NotApplicable, ""),
		}
		reversed := []*result.SingleResult{results[2], results[1], results[0]}

		first, err := result.DefaultSummarizer{}.Summarize(context.Background(), results)
		Expect(err).NotTo(HaveOccurred())
		second, err := result.DefaultSummarizer{}.Summarize(context.Background(), reversed)
		Expect(err).NotTo(HaveOccurred())

		Expect(first.Violation()).To(BeTrue())
		Expect(second.Violation()).To(Equal(first.Violation()))
		Expect(second.Summary.Files.NotValidated).To(Equal(first.Summary.Files.NotValidated))
		Expect(second.Summary.Policies.ViolationDetected).To(Equal(first.Summary.Policies.ViolationDetected))
	})

	It("returns an empty summary for no results", func() {
		out, err := result.DefaultSummarizer{}.Summarize(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Files).To(BeEmpty())
		Expect(out.Summary.Files.List).To(BeEmpty())
		Expect(out.Violation()).To(BeFalse())
	})

	It("stops on an invalid result", func() {
		_, err := result.DefaultSummarizer{}.Summarize(context.Background(), []*result.SingleResult{nil})
		Expect(errutil.HasCode(err, errutil.CodeAggregationInvariant)).To(BeTrue())
	})
})
