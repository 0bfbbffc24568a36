// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package dsl

// Var is one bound variable.
type Var struct {
	Name  string
	Value any
}

// Vars is an ordered variable table. Declaration order is kept so emitted
// declarations are deterministic. A nil *Vars is an empty table.
type Vars struct {
	list  []Var
	index map[string]int
}

// NewVars builds a table from vs. A later duplicate replaces the earlier value
// but keeps its original position.
func NewVars(vs ...Var) *Vars {
	t := &Vars{index: make(map[string]int, len(vs))}
	for _, v := range vs {
		t.Set(v.Name, v.Value)
	}
	return t
}

// Set binds name to value.
func (t *Vars) Set(name string, value any) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[name]; ok {
		t.list[i].Value = value
		return
	}
	t.index[name] = len(t.list)
	t.list = append(t.list, Var{Name: name, Value: value})
}

// Lookup returns the value bound to name.
func (t *Vars) Lookup(name string) (any, bool) {
	if t == nil {
		return nil, false
	}
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.list[i].Value, true
}

// All returns the variables in declaration order.
func (t *Vars) All() []Var {
	if t == nil {
		return nil
	}
	out := make([]Var, len(t.list))
	copy(out, t.list)
	return out
}

// Len returns the number of bound variables.
func (t *Vars) Len() int {
	if t == nil {
		return 0
	}
	return len(t.list)
}
