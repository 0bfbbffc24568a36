// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package errutil holds the error codes shared by the policy pipeline and
// helpers for logging and asserting on coded errors.
package errutil

import "github.com/samber/oops"

// Error codes attached with oops.Code. Every code is fatal to the run that
// raises it.
const (
	// CodeParse marks malformed condition text or emitted source that a
	// backend would reject.
	CodeParse = "PARSE_ERROR"
	// CodeUnresolvedVariable marks a bare identifier missing from the vars table.
	CodeUnresolvedVariable = "UNRESOLVED_VARIABLE"
	// CodeUnsupportedOperator marks an illegal select operator, action kind,
	// or a construct a backend cannot express.
	CodeUnsupportedOperator = "UNSUPPORTED_OPERATOR"
	// CodeMissingPlugin marks a registry without a "default" plugin.
	CodeMissingPlugin = "MISSING_PLUGIN"
	// CodeMissingTargetData marks a target loader that yielded no inputs.
	CodeMissingTargetData = "MISSING_TARGET_DATA"
	// CodeBackendInvocation marks a failed external engine call. The error
	// context carries stdout, stderr and exit_code.
	CodeBackendInvocation = "BACKEND_INVOCATION"
	// CodeAggregationInvariant marks an add that would break the result tree.
	CodeAggregationInvariant = "AGGREGATION_INVARIANT"

	CodeConfigInvalid = "CONFIG_INVALID"
	CodeSourceInstall = "SOURCE_INSTALL"
	CodePolicyLoad    = "POLICY_LOAD"
)

// HasCode reports whether err carries the given oops code anywhere in its chain.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}
