// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/ansible/ansible-policy/internal/engine"
)

const taskBook = `
- name: Task checks
  hosts: localhost
  vars:
    allowed_users:
      - trusted_user
  policies:
    - name: Check become user
      target: task
      condition: context.become_user is defined and context.become_user not in allowed_users
      actions:
        - deny:
            msg: not allowed
    - name: Check play hosts
      target: play
      condition: context.hosts == "all"
      actions:
        - warn:
            msg: play targets all hosts
`

const sitePlaybook = `---
- name: Web
  hosts: webservers
  tasks:
    - name: Install nginx
      ansible.builtin.package:
        name: nginx
      become_user: trusted_user
    - name: Start nginx
      ansible.builtin.service:
        name: nginx
      become_user: %s
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// fakeOPA answers opa eval like the policies in taskBook would: a task
// with a become_user other than trusted_user is denied.
func fakeOPA(t *testing.T) engine.Runner {
	t.Helper()
	return engine.RunnerFunc(func(_ context.Context, cmd engine.Command) (engine.Output, error) {
		var in map[string]any
		data, err := io.ReadAll(cmd.Stdin)
		if err != nil {
			return engine.Output{}, err
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return engine.Output{}, err
		}

		value := map[string]any{}
		switch in["type"] {
		case "task":
			user, ok := in["become_user"].(string)
			value["deny"] = ok && user != "trusted_user"
		case "play":
			value["warn"] = in["hosts"] == "all"
		}
		doc := map[string]any{"result": []any{map[string]any{"expressions": []any{map[string]any{"value": value}}}}}
		out, err := json.Marshal(doc)
		return engine.Output{Stdout: out}, err
	})
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	return cmd, buf
}
