// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package result

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/samber/oops"

	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

// Output formats.
const (
	FormatPlain       = "plain"
	FormatJSON        = "json"
	FormatEventStream = "event_stream"
	FormatRest        = "rest"
)

// Formats lists the supported output formats.
var Formats = []string{FormatPlain, FormatEventStream, FormatRest, FormatJSON}

const (
	defaultWidth     = 80
	maxMessageLength = 120
)

// Formatter renders an EvaluationResult.
type Formatter struct {
	Format  string
	TTY     bool
	Width   int
	BaseDir string

	red, cyan, yellow, green, gray, lightGreen, lightYellow *color.Color
}

// NewFormatter returns a formatter for format writing to w. Colors are used
// only when w is a terminal.
func NewFormatter(format string, w io.Writer) (*Formatter, error) {
	supported := false
	for _, f := range Formats {
		if f == format {
			supported = true
		}
	}
	if !supported {
		return nil, oops.Code(errutil.CodeConfigInvalid).
			With("format", format).
			Errorf("format must be one of %s", strings.Join(Formats, ", "))
	}

	f := &Formatter{Format: format, Width: terminalWidth()}
	if file, ok := w.(*os.File); ok {
		f.TTY = isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
	}
	return f, nil
}

func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return defaultWidth
}

func (f *Formatter) colors() {
	if f.red != nil {
		return
	}
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if f.TTY {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	f.red = mk(color.FgHiRed)
	f.cyan = mk(color.FgHiCyan)
	f.yellow = mk(color.FgYellow)
	f.green = mk(color.FgGreen)
	f.gray = mk(color.FgHiBlack)
	f.lightGreen = mk(color.FgHiGreen)
	f.lightYellow = mk(color.FgHiYellow)
}

// Write renders r to w.
func (f *Formatter) Write(w io.Writer, r *EvaluationResult) error {
	f.colors()
	switch f.Format {
	case FormatJSON:
		return f.writeJSON(w, r)
	case FormatEventStream:
		return f.writeEventStream(w, r)
	case FormatRest:
		return f.writeRest(w, r)
	default:
		return f.writePlain(w, r)
	}
}

func (f *Formatter) writeJSON(w io.Writer, r *EvaluationResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

func (f *Formatter) verdict(violation bool) string {
	if violation {
		return f.red.Sprint("Violation")
	}
	return f.cyan.Sprint("Pass")
}

func truncate(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > maxMessageLength {
		return msg[:maxMessageLength] + "..."
	}
	return msg
}

func (f *Formatter) writeEventStream(w io.Writer, r *EvaluationResult) error {
	if len(r.Files) == 0 || len(r.Files[0].Policies) == 0 || len(r.Files[0].Policies[0].Targets) == 0 {
		return nil
	}
	file := r.Files[0]
	policy := file.Policies[0]
	target := policy.Targets[0]

	id := file.Path
	if len(id) > 8 {
		id = id[:4] + "..." + id[len(id)-4:]
	}
	taskPath, _ := file.Metadata["task_path"].(string)

	var msg string
	if policy.Violation {
		msg = truncate(target.Message)
	}
	if msg != "" {
		msg = "\n    " + f.gray.Sprint(msg)
	}
	_, err := fmt.Fprintf(w, "Event [%s %s] %s %s %s\n",
		target.Name, id, f.lightYellow.Sprint(f.shorten(taskPath)), f.verdict(file.Violation), msg)
	return err
}

func (f *Formatter) writeRest(w io.Writer, r *EvaluationResult) error {
	if len(r.Files) == 0 {
		return nil
	}
	file := r.Files[0]
	var policy *PolicyResult
	for _, p := range file.Policies {
		if len(p.Targets) > 0 {
			policy = p
		}
	}
	if policy == nil {
		return nil
	}

	var msg string
	if policy.Violation {
		msg = f.gray.Sprint(truncate(policy.Targets[0].Message))
	}
	_, err := fmt.Fprintf(w, "REST [%s] %s %s\n", policy.PolicyName, f.verdict(file.Violation), msg)
	return err
}

// typeCounts keeps per-target-type distinct entries in first-seen order.
type typeCounts struct {
	order   []string
	entries map[string][]string
}

func (c *typeCounts) add(typ, entry string) {
	if c.entries == nil {
		c.entries = make(map[string][]string)
	}
	list, ok := c.entries[typ]
	if !ok {
		c.order = append(c.order, typ)
	}
	for _, e := range list {
		if e == entry {
			return
		}
	}
	c.entries[typ] = append(list, entry)
}

func (c *typeCounts) String() string {
	parts := make([]string, 0, len(c.order))
	for _, typ := range c.order {
		n := len(c.entries[typ])
		plural := ""
		if n > 1 {
			plural = "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s%s", n, typ, plural))
	}
	return strings.Join(parts, ", ")
}

func (f *Formatter) writePlain(w io.Writer, r *EvaluationResult) error {
	var violations, warnings, infos typeCounts
	headers := make(map[string]bool)
	var b strings.Builder

	for _, file := range r.Files {
		path := f.shorten(file.Path)
		for _, p := range file.Policies {
			for _, t := range p.Targets {
				if t.Validated != Failure {
					continue
				}
				lines := t.Lines.String()
				entry := p.TargetType + " " + t.Name + " " + path + " " + lines

				var flag string
				switch t.ActionKind {
				case types.ActionDeny, types.ActionAllow:
					violations.add(p.TargetType, entry)
					flag = f.red.Sprint("Not Validated")
				case types.ActionWarn:
					warnings.add(p.TargetType, entry)
					flag = f.yellow.Sprint("Warning")
				case types.ActionInfo:
					infos.add(p.TargetType, entry)
					flag = f.green.Sprint("Info")
				default:
					continue
				}

				header := strings.ToUpper(p.TargetType) + " [" + t.Name + "] " +
					f.lightYellow.Sprint(path+" "+lines) + " "
				if !headers[header] {
					headers[header] = true
					b.WriteString(padRight(header, f.Width, '*') + "\n")
				}
				b.WriteString("... " + p.PolicyName + " " + flag + "\n")
				b.WriteString("    " + f.gray.Sprint(strings.TrimSpace(t.Message)) + "\n\n")
			}
		}
	}

	b.WriteString(strings.Repeat("-", f.Width) + "\n")
	b.WriteString("SUMMARY\n")
	fmt.Fprintf(&b, "... %s: %d, %s: %d, %s: %d\n\n",
		f.lightGreen.Sprint("Total files"), r.Summary.Files.Total,
		f.cyan.Sprint("Validated"), r.Summary.Files.Validated,
		f.red.Sprint("Not Validated"), r.Summary.Files.NotValidated,
	)

	if s := violations.String(); s != "" {
		b.WriteString(f.red.Sprint("Violations are detected! in "+s) + "\n")
	}
	if s := warnings.String(); s != "" {
		b.WriteString(f.yellow.Sprint("Warning messages present in "+s) + "\n")
	}
	if s := infos.String(); s != "" {
		b.WriteString(f.green.Sprint("Info messages present in "+s) + "\n")
	}
	if len(violations.order)+len(warnings.order)+len(infos.order) == 0 {
		b.WriteString(f.cyan.Sprint("No violations are detected") + "\n")
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func padRight(s string, width int, pad rune) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(string(pad), width-n)
}

func (f *Formatter) shorten(path string) string {
	if f.BaseDir == "" {
		return path
	}
	prefix := strings.TrimSuffix(f.BaseDir, "/") + "/"
	return strings.TrimPrefix(path, prefix)
}
