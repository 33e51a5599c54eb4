// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metadata implements the variable/group/attribute graph: declared
// groups own variables, attributes and method bindings, keyed by both a
// stable integer id and a name, in insertion order.
//
// None of this is safe for concurrent use. define/declare/select calls must
// be serialized by the caller, the same way the teacher's own config layer
// is populated once at startup and then only read.
package metadata

import (
	"github.com/adios-io/adios/pkg/adioserr"
	"github.com/adios-io/adios/pkg/dimtype"
)

// Method is a transport binding attached to a group: a write on the group
// fans out to every attached method.
type Method struct {
	Kind     string
	Params   string
	BasePath string
}

// Variable is a declared array or scalar. ID is assigned in declaration
// order and is stable for the life of the group.
type Variable struct {
	ID     uint32
	Name   string
	Path   string
	Type   dimtype.Type
	IsDim  bool // declared as a dimension-only variable; writable in read mode
	Global bool // true if GlobalDims/Offsets describe a decomposed array

	Dimensions []dimtype.Expr
	GlobalDims []dimtype.Expr
	Offsets    []dimtype.Expr
	Transform  string
}

// Scalar reports whether v has no dimensions (invariant V1).
func (v *Variable) Scalar() bool { return len(v.Dimensions) == 0 }

// countTimeDims reports how many of dims are the special TIME token,
// enforcing invariant V2 ("exactly one TIME dimension is permitted per
// variable") — distinct from haveTimeIndex below, which restricts a group
// to a single designated step-counter variable, not a single TIME
// dimension within one variable's own shape.
func countTimeDims(dims []dimtype.Expr) int {
	n := 0
	for _, d := range dims {
		if d.Kind == dimtype.KindTime {
			n++
		}
	}
	return n
}

// Attribute is an immutable (name, path, type, value|var_ref) tuple.
type Attribute struct {
	ID     uint32
	Name   string
	Path   string
	Type   dimtype.Type
	Value  []byte // literal payload; nil when VarRef is used
	VarRef uint32
	HasRef bool
}

// Group is a named collection of variables, attributes and methods.
type Group struct {
	ID                uint32
	Name              string
	TimeIndexName     string
	StatsFlag         bool
	AllUniqueVarNames bool

	vars      []*Variable
	varByID   map[uint32]*Variable
	varByName map[string]*Variable

	attrs      []*Attribute
	attrByID   map[uint32]*Attribute
	attrByName map[string]*Attribute

	methods []Method

	nextVarID  uint32
	nextAttrID uint32

	timeIndexVarID uint32
	haveTimeIndex  bool

	step uint64
}

func newGroup(id uint32, name, timeIndexName string, statsFlag bool) *Group {
	return &Group{
		ID:                id,
		Name:              name,
		TimeIndexName:     timeIndexName,
		StatsFlag:         statsFlag,
		AllUniqueVarNames: true,
		varByID:           make(map[uint32]*Variable),
		varByName:         make(map[string]*Variable),
		attrByID:          make(map[uint32]*Attribute),
		attrByName:        make(map[string]*Attribute),
	}
}

// varKey returns the lookup key for a variable's name, honoring
// AllUniqueVarNames: when false, (path,name) identifies the variable
// instead of name alone.
func (g *Group) varKey(path, name string) string {
	if g.AllUniqueVarNames {
		return name
	}
	return path + "\x00" + name
}

// DefineVar declares a new variable in g. Dimensions, global dimensions and
// offsets are already-compiled expressions (see pkg/dimtype); callers
// resolve formula text before calling this.
func (g *Group) DefineVar(name, path string, typ dimtype.Type, dims, globalDims, offsets []dimtype.Expr, transform string) (*Variable, error) {
	if name == "" {
		return nil, adioserr.Set(adioserr.InvalidVarName, "variable name must not be empty")
	}
	key := g.varKey(path, name)
	if _, exists := g.varByName[key]; exists {
		return nil, adioserr.Set(adioserr.DuplicateName, "variable %q already declared in group %q", name, g.Name)
	}
	if timeDims := countTimeDims(dims); timeDims > 1 {
		return nil, adioserr.Set(adioserr.InvalidDimension, "variable %q declares %d TIME dimensions, at most one is permitted", name, timeDims)
	}

	v := &Variable{
		ID:         g.nextVarID,
		Name:       name,
		Path:       path,
		Type:       typ,
		Dimensions: dims,
		GlobalDims: globalDims,
		Offsets:    offsets,
		Transform:  transform,
		Global:     len(globalDims) > 0,
	}
	g.nextVarID++

	if name == g.TimeIndexName {
		if g.haveTimeIndex {
			return nil, adioserr.Set(adioserr.InvalidGroup, "group %q already has a time index variable", g.Name)
		}
		g.haveTimeIndex = true
		g.timeIndexVarID = v.ID
	}

	g.vars = append(g.vars, v)
	g.varByID[v.ID] = v
	g.varByName[key] = v
	return v, nil
}

// MarkDim flags v as a dimension-only variable: writable even when the
// file is open in read mode (the single exception in §4.F's mode check).
func (g *Group) MarkDim(v *Variable) { v.IsDim = true }

// FindVarByName resolves name (and, when AllUniqueVarNames is false, path)
// to a declared variable.
func (g *Group) FindVarByName(path, name string) (*Variable, bool) {
	v, ok := g.varByName[g.varKey(path, name)]
	return v, ok
}

// FindVarByID resolves a stable variable id to its declaration.
func (g *Group) FindVarByID(id uint32) (*Variable, bool) {
	v, ok := g.varByID[id]
	return v, ok
}

// Vars returns all declared variables in declaration order. The returned
// slice is owned by the caller; it is a fresh copy.
func (g *Group) Vars() []*Variable {
	out := make([]*Variable, len(g.vars))
	copy(out, g.vars)
	return out
}

// DefineAttribute declares a literal- or variable-referencing attribute.
func (g *Group) DefineAttribute(name, path string, typ dimtype.Type, value []byte, varRef uint32, hasRef bool) (*Attribute, error) {
	if name == "" {
		return nil, adioserr.Set(adioserr.InvalidVarName, "attribute name must not be empty")
	}
	key := g.varKey(path, name)
	if _, exists := g.attrByName[key]; exists {
		return nil, adioserr.Set(adioserr.DuplicateName, "attribute %q already declared in group %q", name, g.Name)
	}
	if hasRef {
		if _, ok := g.varByID[varRef]; !ok {
			return nil, adioserr.Set(adioserr.InvalidVarID, "attribute %q references unknown variable id %d", name, varRef)
		}
	}

	a := &Attribute{
		ID:     g.nextAttrID,
		Name:   name,
		Path:   path,
		Type:   typ,
		Value:  value,
		VarRef: varRef,
		HasRef: hasRef,
	}
	g.nextAttrID++

	g.attrs = append(g.attrs, a)
	g.attrByID[a.ID] = a
	g.attrByName[key] = a
	return a, nil
}

// FindAttrByName resolves an attribute by name/path, respecting the same
// uniqueness rule as variables.
func (g *Group) FindAttrByName(path, name string) (*Attribute, bool) {
	a, ok := g.attrByName[g.varKey(path, name)]
	return a, ok
}

// FindAttrByID resolves an attribute by its stable id.
func (g *Group) FindAttrByID(id uint32) (*Attribute, bool) {
	a, ok := g.attrByID[id]
	return a, ok
}

// Attrs returns all declared attributes in declaration order.
func (g *Group) Attrs() []*Attribute {
	out := make([]*Attribute, len(g.attrs))
	copy(out, g.attrs)
	return out
}

// SelectMethod attaches a transport method binding to the group. A group
// may carry more than one; a write fans out to all of them.
func (g *Group) SelectMethod(kind, params, basePath string) {
	g.methods = append(g.methods, Method{Kind: kind, Params: params, BasePath: basePath})
}

// Methods returns the method bindings attached to g, in attachment order.
func (g *Group) Methods() []Method {
	out := make([]Method, len(g.methods))
	copy(out, g.methods)
	return out
}

// TimeIndexVar returns the variable designated as the group's step
// counter, if one was named at declare_group time and has since been
// defined.
func (g *Group) TimeIndexVar() (*Variable, bool) {
	if !g.haveTimeIndex {
		return nil, false
	}
	return g.FindVarByID(g.timeIndexVarID)
}

// BeginStep returns the group's current step/time_index and advances it,
// per the glossary's "monotone counter incremented each open; used to sort
// PGs". The first open of a group sees step 0.
func (g *Group) BeginStep() uint64 {
	s := g.step
	g.step++
	return s
}
