// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dimtype

import "testing"

type fakeResolver struct {
	scalarsByID map[uint32]uint64
	attrsByID   map[uint32]uint64
	scalars     map[string]uint64
	attrs       map[string]uint64
	step        uint64
}

func (f *fakeResolver) ScalarByID(id uint32) (uint64, bool) { v, ok := f.scalarsByID[id]; return v, ok }
func (f *fakeResolver) AttrByID(id uint32) (uint64, bool)   { v, ok := f.attrsByID[id]; return v, ok }
func (f *fakeResolver) ScalarByName(n string) (uint64, bool) {
	v, ok := f.scalars[n]
	return v, ok
}
func (f *fakeResolver) AttrByName(n string) (uint64, bool) { v, ok := f.attrs[n]; return v, ok }
func (f *fakeResolver) CurrentStep() uint64                { return f.step }
func (f *fakeResolver) NamesForFormula() (map[string]uint64, map[string]uint64) {
	return f.scalars, f.attrs
}

func TestResolveLiteral(t *testing.T) {
	v, err := Resolve(Literal(42), &fakeResolver{})
	if err != nil || v != 42 {
		t.Fatalf("Resolve(Literal(42)) = %d, %v", v, err)
	}
}

func TestResolveVarRef(t *testing.T) {
	r := &fakeResolver{scalarsByID: map[uint32]uint64{3: 44}}
	v, err := Resolve(VarRef(3), r)
	if err != nil || v != 44 {
		t.Fatalf("Resolve(VarRef(3)) = %d, %v", v, err)
	}

	if _, err := Resolve(VarRef(99), r); err == nil {
		t.Errorf("expected error resolving unknown variable reference")
	}
}

func TestResolveAttrRef(t *testing.T) {
	r := &fakeResolver{attrsByID: map[uint32]uint64{1: 7}}
	v, err := Resolve(AttrRef(1), r)
	if err != nil || v != 7 {
		t.Fatalf("Resolve(AttrRef(1)) = %d, %v", v, err)
	}
}

func TestResolveTime(t *testing.T) {
	r := &fakeResolver{step: 12}
	v, err := Resolve(Time(), r)
	if err != nil || v != 12 {
		t.Fatalf("Resolve(Time()) = %d, %v", v, err)
	}
}

func TestResolveFormula(t *testing.T) {
	expr, err := CompileFormula("npoints/2+1")
	if err != nil {
		t.Fatalf("CompileFormula: %v", err)
	}
	r := &fakeResolver{scalars: map[string]uint64{"npoints": 44}}
	v, err := Resolve(expr, r)
	if err != nil {
		t.Fatalf("Resolve(formula): %v", err)
	}
	if v != 23 {
		t.Errorf("Resolve(npoints/2+1) with npoints=44 = %d, want 23", v)
	}
}

func TestResolveFormulaUsesTime(t *testing.T) {
	expr, err := CompileFormula("TIME")
	if err != nil {
		t.Fatalf("CompileFormula: %v", err)
	}
	r := &fakeResolver{step: 5}
	v, err := Resolve(expr, r)
	if err != nil || v != 5 {
		t.Fatalf("Resolve(TIME formula) = %d, %v", v, err)
	}
}

func TestCompileFormulaInvalidSyntax(t *testing.T) {
	if _, err := CompileFormula("npoints +* 2"); err == nil {
		t.Errorf("expected compile error for invalid syntax")
	}
}
