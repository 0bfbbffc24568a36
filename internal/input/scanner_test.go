// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package input_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansible/ansible-policy/internal/input"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

func TestPlaybookScanner(t *testing.T) {
	recs, err := input.PlaybookScanner{}.Scan(context.Background(), filepath.Join("testdata", "project"))
	require.NoError(t, err)
	require.Len(t, recs, 4)

	site := filepath.Join("testdata", "project", "site.yml")
	play := recs[0]
	assert.Equal(t, types.TargetPlay, play.Type)
	assert.Equal(t, "Configure web servers", play.Name)
	assert.Equal(t, site, play.Filepath)
	assert.Equal(t, &types.LineSpan{Begin: 2, End: 20}, play.Lines)
	assert.Equal(t, "webservers", play.Data["hosts"])

	install := recs[1]
	assert.Equal(t, types.TargetTask, install.Type)
	assert.Equal(t, "Install nginx", install.Name)
	assert.Equal(t, "ansible.builtin.package", install.Data["module"])
	assert.Equal(t, &types.LineSpan{Begin: 6, End: 9}, install.Lines)
	assert.Equal(t, map[string]any{"begin": 6, "end": 9}, install.Data["lines"])

	start := recs[2]
	assert.Equal(t, "Start nginx", start.Name)
	assert.Equal(t, "ansible.builtin.service", start.Data["module"])
	assert.Equal(t, "root", start.Data["become_user"])

	assert.Equal(t, "Report failure", recs[3].Name)
	assert.Equal(t, "ansible.builtin.debug", recs[3].Data["module"])
}

func TestScannerLoaderFiltersByType(t *testing.T) {
	l := input.ScannerLoader{Scanner: input.PlaybookScanner{}}
	path := filepath.Join("testdata", "project", "site.yml")

	tasks, err := l.Load(context.Background(), types.TargetTask, path)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	plays, err := l.Load(context.Background(), types.TargetPlay, path)
	require.NoError(t, err)
	assert.Len(t, plays, 1)
}

type failingScanner struct{}

func (failingScanner) Scan(context.Context, string) ([]*input.Record, error) {
	return nil, errors.New("boom")
}

func TestScannerLoaderError(t *testing.T) {
	_, err := input.ScannerLoader{Scanner: failingScanner{}}.Load(context.Background(), types.TargetTask, "x")
	errutil.AssertErrorCode(t, err, errutil.CodeMissingTargetData)
}
