// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package types

import "strconv"

// LineSpan locates a target in its source file. End is zero when only the
// first line is known.
type LineSpan struct {
	Begin int `json:"begin" yaml:"begin"`
	End   int `json:"end,omitempty" yaml:"end,omitempty"`
}

// String renders the span as L<begin>-<end> or L<begin>.
func (s *LineSpan) String() string {
	if s == nil || s.Begin == 0 {
		return ""
	}
	if s.End == 0 {
		return "L" + strconv.Itoa(s.Begin)
	}
	return "L" + strconv.Itoa(s.Begin) + "-" + strconv.Itoa(s.End)
}
