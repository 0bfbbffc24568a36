// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package evaluate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/internal/result"
)

// Metrics for policy evaluation.
var (
	// evaluateDuration tracks the latency of one engine call.
	evaluateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ansible_policy_evaluate_duration_seconds",
		Help:    "Histogram of single policy evaluation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	// evaluations counts evaluations by validation and action kind.
	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ansible_policy_evaluations_total",
		Help: "Total number of single policy evaluations",
	}, []string{"validation", "action"})

	// backendErrors counts failed engine calls.
	backendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ansible_policy_backend_errors_total",
		Help: "Total number of backend invocation failures",
	}, []string{"language"})
)

// RecordEvaluation records metrics for a completed engine call.
func RecordEvaluation(lang types.Language, duration time.Duration, sr *result.SingleResult) {
	evaluateDuration.WithLabelValues(string(lang)).Observe(duration.Seconds())
	action := string(sr.ActionKind)
	if action == "" {
		action = "none"
	}
	evaluations.WithLabelValues(sr.Validation.String(), action).Inc()
}

// RecordBackendError counts a failed engine call.
func RecordBackendError(lang types.Language) {
	backendErrors.WithLabelValues(string(lang)).Inc()
}
