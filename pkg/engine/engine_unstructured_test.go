// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"testing"

	"github.com/adios-io/adios/pkg/dimtype"
	"github.com/adios-io/adios/pkg/metadata"
)

// declareUnstructuredGroup reproduces the group the original ADIOS C
// example (original_source/examples/C/schema/unstructured.c) declares: a
// 44-point, 60-cell 2D unstructured mesh with three point-centered fields
// (U, V, T), a cell-to-point connectivity array, and both combined and
// per-axis point coordinate arrays.
func declareUnstructuredGroup(t *testing.T) (*metadata.Group, map[string]*metadata.Variable) {
	t.Helper()
	g, err := GetEngine().Graph().DeclareGroup("unstructured-"+t.Name(), "", true)
	if err != nil {
		t.Fatalf("DeclareGroup: %v", err)
	}

	vars := make(map[string]*metadata.Variable)
	define := func(name string, typ dimtype.Type, dims []dimtype.Expr) {
		v, err := g.DefineVar(name, "", typ, dims, nil, nil, "")
		if err != nil {
			t.Fatalf("DefineVar(%s): %v", name, err)
		}
		vars[name] = v
	}

	define("npoints", dimtype.TypeInt, nil)
	define("num_cells", dimtype.TypeInt, nil)
	define("Nspace", dimtype.TypeInt, nil)

	npoints := dimtype.VarRef(vars["npoints"].ID)
	numCells := dimtype.VarRef(vars["num_cells"].ID)
	nspace := dimtype.VarRef(vars["Nspace"].ID)

	define("U", dimtype.TypeDouble, []dimtype.Expr{npoints})
	define("V", dimtype.TypeDouble, []dimtype.Expr{npoints})
	define("T", dimtype.TypeDouble, []dimtype.Expr{npoints})
	define("cells", dimtype.TypeInt, []dimtype.Expr{numCells, dimtype.Literal(3)})
	define("points", dimtype.TypeFloat, []dimtype.Expr{npoints, nspace})
	define("points_X", dimtype.TypeFloat, []dimtype.Expr{npoints})
	define("points_Y", dimtype.TypeFloat, []dimtype.Expr{npoints})

	return g, vars
}

func TestUnstructuredMeshWriteRoundTrip(t *testing.T) {
	testInit(t)
	g, _ := declareUnstructuredGroup(t)

	const npoints = 44
	const numCells = 60
	const nspace = 2

	tp := &captureTransport{}
	f, err := Open(g, metadata.ModeWrite, 0, tp)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	payload := 3*4 + 3*8*npoints + 4*numCells*3 + 4*npoints*nspace + 4*npoints + 4*npoints
	if _, err := f.GroupSize(payload); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}

	writeScalar := func(name string, v int32) {
		if err := f.Write("", name, v); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
	}
	writeScalar("npoints", npoints)
	writeScalar("num_cells", numCells)
	writeScalar("Nspace", nspace)

	u := make([]float64, npoints)
	v := make([]float64, npoints)
	tt := make([]float64, npoints)
	for i := range u {
		u[i], v[i], tt[i] = float64(i), float64(-i), float64(i % 3)
	}
	if err := f.Write("", "U", u); err != nil {
		t.Fatalf("Write(U): %v", err)
	}
	if err := f.Write("", "V", v); err != nil {
		t.Fatalf("Write(V): %v", err)
	}
	if err := f.Write("", "T", tt); err != nil {
		t.Fatalf("Write(T): %v", err)
	}

	cells := make([]int32, numCells*3)
	for i := range cells {
		cells[i] = int32(i % npoints)
	}
	if err := f.Write("", "cells", cells); err != nil {
		t.Fatalf("Write(cells): %v", err)
	}

	points := make([]float32, npoints*nspace)
	pointsX := make([]float32, npoints)
	pointsY := make([]float32, npoints)
	for i := 0; i < npoints; i++ {
		pointsX[i] = float32(i / 4)
		pointsY[i] = float32(i % 4)
		points[2*i] = pointsX[i]
		points[2*i+1] = pointsY[i]
	}
	if err := f.Write("", "points", points); err != nil {
		t.Fatalf("Write(points): %v", err)
	}
	if err := f.Write("", "points_X", pointsX); err != nil {
		t.Fatalf("Write(points_X): %v", err)
	}
	if err := f.Write("", "points_Y", pointsY); err != nil {
		t.Fatalf("Write(points_Y): %v", err)
	}

	if err := f.Close(false); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !tp.called {
		t.Fatal("expected transport.Publish to be called")
	}
	if tp.partial {
		t.Error("did not expect a partial step")
	}
	if got, want := len(tp.pg.Vars), 10; got != want {
		t.Fatalf("got %d written variables, want %d", got, want)
	}

	for _, name := range []string{"npoints", "num_cells", "Nspace", "U", "V", "T", "cells", "points", "points_X", "points_Y"} {
		found := false
		for _, vr := range tp.pg.Vars {
			if vr.Name == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %q in the written PG, not found", name)
		}
	}
}

func TestUnstructuredMeshRejectsCellsWithoutDeclaredDims(t *testing.T) {
	testInit(t)
	g, _ := declareUnstructuredGroup(t)

	tp := &captureTransport{}
	f, err := Open(g, metadata.ModeWrite, 0, tp)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.GroupSize(64); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}

	// num_cells was never written, so "cells" dimension resolution must
	// fail rather than silently writing a zero-length array.
	if err := f.Write("", "cells", []int32{1, 2, 3}); err == nil {
		t.Fatal("expected Write(cells) to fail when num_cells is unresolved")
	}
}
