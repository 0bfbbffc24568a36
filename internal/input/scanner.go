// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package input

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// ContentScanner extracts play and task records from Ansible content.
type ContentScanner interface {
	Scan(ctx context.Context, path string) ([]*Record, error)
}

// ScannerLoader serves play and task records from a ContentScanner.
type ScannerLoader struct {
	Scanner ContentScanner
}

var _ Loader = ScannerLoader{}

// Load implements Loader, keeping the records whose type is targetType.
func (l ScannerLoader) Load(ctx context.Context, targetType, path string) ([]*Record, error) {
	recs, err := l.Scanner.Scan(ctx, path)
	if err != nil {
		return nil, oops.Code(errutil.CodeMissingTargetData).
			With("target_type", targetType).
			With("path", path).
			Wrapf(err, "scanning content")
	}
	out := recs[:0:0]
	for _, r := range recs {
		if r.Type == targetType {
			out = append(out, r)
		}
	}
	return out, nil
}

// playKeys are the block sections whose entries are tasks.
var playKeys = []string{"pre_tasks", "tasks", "post_tasks", "handlers"}

// taskKeywords are task-level keys that are never the module name.
var taskKeywords = map[string]bool{
	"name": true, "when": true, "become": true, "become_user": true, "become_method": true,
	"register": true, "vars": true, "tags": true, "loop": true, "with_items": true,
	"notify": true, "ignore_errors": true, "changed_when": true, "failed_when": true,
	"delegate_to": true, "environment": true, "no_log": true, "args": true,
	"check_mode": true, "run_once": true, "until": true, "retries": true, "delay": true,
	"block": true, "rescue": true, "always": true, "module_defaults": true, "listen": true,
}

// PlaybookScanner is a ContentScanner over playbook YAML files. It records
// plays and their tasks with line spans, descending into blocks.
type PlaybookScanner struct{}

var _ ContentScanner = PlaybookScanner{}

// Scan implements ContentScanner. Files that are not playbooks are skipped.
func (PlaybookScanner) Scan(ctx context.Context, path string) ([]*Record, error) {
	files, err := yamlFiles(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, f := range files {
		recs, err := scanPlaybook(f)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func yamlFiles(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if ext := filepath.Ext(p); ext == ".yml" || ext == ".yaml" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func scanPlaybook(path string) ([]*Record, error) {
	body, err := os.ReadFile(path) //nolint:gosec // path comes from the walked target tree
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, nil //nolint:nilerr // not YAML content, nothing to scan
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.SequenceNode {
		return nil, nil
	}

	var out []*Record
	for pi, play := range doc.Content[0].Content {
		if !isPlay(play) {
			continue
		}
		data, err := decodeMapping(play)
		if err != nil {
			return nil, fmt.Errorf("%s: play %d: %w", path, pi, err)
		}
		name, _ := data["name"].(string)
		out = append(out, &Record{
			Type:     types.TargetPlay,
			Name:     name,
			Filepath: path,
			Lines:    span(play),
			Data:     withIdentity(data, types.TargetPlay, path, play),
		})
		for _, key := range playKeys {
			section := mappingValue(play, key)
			if section == nil || section.Kind != yaml.SequenceNode {
				continue
			}
			tasks, err := scanTasks(path, section.Content)
			if err != nil {
				return nil, err
			}
			out = append(out, tasks...)
		}
	}
	return out, nil
}

func scanTasks(path string, nodes []*yaml.Node) ([]*Record, error) {
	var out []*Record
	for _, n := range nodes {
		if n.Kind != yaml.MappingNode {
			continue
		}
		if block := mappingValue(n, "block"); block != nil {
			for _, key := range []string{"block", "rescue", "always"} {
				section := mappingValue(n, key)
				if section == nil || section.Kind != yaml.SequenceNode {
					continue
				}
				inner, err := scanTasks(path, section.Content)
				if err != nil {
					return nil, err
				}
				out = append(out, inner...)
			}
			continue
		}
		data, err := decodeMapping(n)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n.Line, err)
		}
		if module := taskModule(n); module != "" {
			data["module"] = module
		}
		name, _ := data["name"].(string)
		out = append(out, &Record{
			Type:     types.TargetTask,
			Name:     name,
			Filepath: path,
			Lines:    span(n),
			Data:     withIdentity(data, types.TargetTask, path, n),
		})
	}
	return out, nil
}

func isPlay(n *yaml.Node) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for _, key := range []string{"hosts", "import_playbook", "tasks", "roles"} {
		if mappingValue(n, key) != nil {
			return true
		}
	}
	return false
}

func taskModule(n *yaml.Node) string {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i].Value; !taskKeywords[k] {
			return k
		}
	}
	return ""
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func decodeMapping(n *yaml.Node) (map[string]any, error) {
	var m map[string]any
	if err := n.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding mapping: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func withIdentity(data map[string]any, typ, path string, n *yaml.Node) map[string]any {
	data["type"] = typ
	data["filepath"] = path
	if s := span(n); s != nil {
		data["lines"] = map[string]any{"begin": s.Begin, "end": s.End}
	}
	return data
}

// span covers n from its first line to the deepest last line below it.
func span(n *yaml.Node) *types.LineSpan {
	if n == nil || n.Line == 0 {
		return nil
	}
	return &types.LineSpan{Begin: n.Line, End: lastLine(n)}
}

func lastLine(n *yaml.Node) int {
	last := n.Line
	for _, c := range n.Content {
		if l := lastLine(c); l > last {
			last = l
		}
	}
	return last
}
