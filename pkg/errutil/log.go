// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. Coded errors contribute their code and
// context; backend failures additionally surface the captured streams so the
// operator does not need to rerun the command to see them.
func LogError(logger *slog.Logger, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil && code != "" {
		attrs = append(attrs, "code", code)
	}
	rest := make(map[string]any)
	for key, v := range oopsErr.Context() {
		switch key {
		case "stdout", "stderr":
			attrs = append(attrs, key, v)
		default:
			rest[key] = v
		}
	}
	if len(rest) > 0 {
		attrs = append(attrs, "context", rest)
	}
	logger.Error(msg, attrs...)
}
