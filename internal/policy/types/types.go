// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package types holds the policy vocabulary shared by the compiler, the
// engines and the result aggregator.
package types

import "fmt"

// Built-in target types. Plugins may register further custom types.
const (
	TargetPlay  = "play"
	TargetTask  = "task"
	TargetEvent = "event"
	TargetRest  = "rest"
)

// BuiltinTargets lists the target types understood without a plugin.
var BuiltinTargets = []string{TargetPlay, TargetTask, TargetEvent, TargetRest}

// ActionKind is the verdict a policy rule produces when its condition holds.
type ActionKind string

// Action kinds.
const (
	ActionPermit ActionKind = "permit"
	ActionForbid ActionKind = "forbid"
	ActionAllow  ActionKind = "allow"
	ActionDeny   ActionKind = "deny"
	ActionInfo   ActionKind = "info"
	ActionWarn   ActionKind = "warn"
	ActionIgnore ActionKind = "ignore"
)

var actionKinds = map[string]ActionKind{
	"permit": ActionPermit,
	"forbid": ActionForbid,
	"allow":  ActionAllow,
	"deny":   ActionDeny,
	"info":   ActionInfo,
	"warn":   ActionWarn,
	"ignore": ActionIgnore,
}

// ParseActionKind returns the kind spelled s.
func ParseActionKind(s string) (ActionKind, error) {
	k, ok := actionKinds[s]
	if !ok {
		return "", fmt.Errorf("unknown action kind %q", s)
	}
	return k, nil
}

// IsHard reports whether a failed validation of this kind is a violation.
// Soft kinds (info, warn, ...) only annotate.
func (k ActionKind) IsHard() bool {
	return k == ActionDeny || k == ActionAllow
}

// Language is a policy backend language.
type Language string

// Languages.
const (
	LanguageRego  Language = "rego"
	LanguageCedar Language = "cedar"
)

// Ext returns the file extension for compiled policies, without the dot.
func (l Language) Ext() string {
	return string(l)
}

// LanguageForExt maps a file extension (with or without the dot) to a language.
func LanguageForExt(ext string) (Language, bool) {
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	switch ext {
	case "rego":
		return LanguageRego, true
	case "cedar":
		return LanguageCedar, true
	}
	return "", false
}
