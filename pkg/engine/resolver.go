// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import "github.com/adios-io/adios/pkg/dimtype"

// fileResolver implements dimtype.Resolver against one File's
// session state: scalars already written this step, by id or name, plus
// the group's declared attributes.
type fileResolver struct {
	f *File
}

func (r *fileResolver) ScalarByID(id uint32) (uint64, bool) {
	v, ok := r.f.scalarU64[id]
	return v, ok
}

func (r *fileResolver) AttrByID(id uint32) (uint64, bool) {
	a, ok := r.f.group.FindAttrByID(id)
	if !ok {
		return 0, false
	}
	return r.resolveAttr(a.VarRef, a.HasRef, a.Type, a.Value)
}

func (r *fileResolver) ScalarByName(name string) (uint64, bool) {
	v, ok := r.f.group.FindVarByName("", name)
	if !ok {
		return 0, false
	}
	val, ok := r.f.scalarU64[v.ID]
	return val, ok
}

func (r *fileResolver) AttrByName(name string) (uint64, bool) {
	a, ok := r.f.group.FindAttrByName("", name)
	if !ok {
		return 0, false
	}
	return r.resolveAttr(a.VarRef, a.HasRef, a.Type, a.Value)
}

func (r *fileResolver) resolveAttr(varRef uint32, hasRef bool, t dimtype.Type, literal []byte) (uint64, bool) {
	if hasRef {
		val, ok := r.f.scalarU64[varRef]
		return val, ok
	}
	return decodeScalarAsUint64(t, literal)
}

func (r *fileResolver) CurrentStep() uint64 { return r.f.step }

func (r *fileResolver) NamesForFormula() (scalars, attrs map[string]uint64) {
	scalars = make(map[string]uint64, len(r.f.scalarU64))
	for _, v := range r.f.group.Vars() {
		if val, ok := r.f.scalarU64[v.ID]; ok {
			scalars[v.Name] = val
		}
	}
	attrs = make(map[string]uint64)
	for _, a := range r.f.group.Attrs() {
		if val, ok := r.resolveAttr(a.VarRef, a.HasRef, a.Type, a.Value); ok {
			attrs[a.Name] = val
		}
	}
	return scalars, attrs
}
