// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`{{\s*([^}]+)\s*}}`)

// RenderMessage rewrites a message template into a print statement.
// Each {{ expr }} placeholder becomes a %v argument of sprintf, in source
// order and literal percent signs are doubled. Templates without
// placeholders print the quoted text.
func RenderMessage(tmpl string) string {
	args := messageArgs(tmpl)
	if len(args) == 0 {
		return "print(" + mustJSON(tmpl) + ")"
	}
	parts := placeholderRe.Split(tmpl, -1)
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "%", "%%")
	}
	format := strings.Join(parts, "%v")
	return "print(sprintf(" + mustJSON(format) + ", [" + strings.Join(args, ", ") + "]))"
}

// messageArgs returns the placeholder expressions of tmpl.
func messageArgs(tmpl string) []string {
	matches := placeholderRe.FindAllStringSubmatch(tmpl, -1)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = strings.TrimSpace(m[1])
	}
	return out
}
