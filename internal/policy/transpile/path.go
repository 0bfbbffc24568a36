// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package transpile

import (
	"fmt"
	"strconv"
)

// segment is one accessor of a reference path.
type segment struct {
	raw   string // accessor as written, e.g. .name or ["k"]
	name  string // field name or unquoted subscript key
	index bool   // integer subscript
}

// splitPath splits a reference path into its root identifier and accessors.
func splitPath(path string) (string, []segment, error) {
	i := 0
	for i < len(path) && path[i] != '.' && path[i] != '[' {
		i++
	}
	root := path[:i]
	var segs []segment
	for i < len(path) {
		start := i
		switch path[i] {
		case '.':
			i++
			for i < len(path) && path[i] != '.' && path[i] != '[' {
				i++
			}
			segs = append(segs, segment{raw: path[start:i], name: path[start+1 : i]})
		case '[':
			end, err := closingBracket(path, i)
			if err != nil {
				return "", nil, err
			}
			inner := path[i+1 : end]
			i = end + 1
			seg := segment{raw: path[start:i]}
			if len(inner) > 0 && (inner[0] == '"' || inner[0] == '\'') {
				key, err := strconv.Unquote(`"` + inner[1:len(inner)-1] + `"`)
				if err != nil {
					key = inner[1 : len(inner)-1]
				}
				seg.name = key
			} else {
				seg.name = inner
				seg.index = true
			}
			segs = append(segs, seg)
		default:
			return "", nil, fmt.Errorf("malformed reference %q", path)
		}
	}
	return root, segs, nil
}

func closingBracket(path string, open int) (int, error) {
	var quote byte
	for i := open + 1; i < len(path); i++ {
		c := path[i]
		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case quote == 0 && c == ']':
			return i, nil
		}
	}
	return 0, fmt.Errorf("unterminated subscript in %q", path)
}
