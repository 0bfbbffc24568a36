// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package loader

import (
	"context"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Cloner fetches a git source into dir.
type Cloner interface {
	Clone(ctx context.Context, location, dir string) error
}

// GitCloner clones with go-git. A location may name a branch after a `#`,
// e.g. https://example.com/policies.git#main.
type GitCloner struct{}

// Clone implements Cloner.
func (GitCloner) Clone(ctx context.Context, location, dir string) error {
	url, branch, _ := strings.Cut(location, "#")
	opts := &gogit.CloneOptions{URL: url}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	_, err := gogit.PlainCloneContext(ctx, dir, false, opts)
	return err
}
