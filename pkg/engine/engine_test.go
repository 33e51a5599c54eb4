// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"os"
	"testing"

	"github.com/adios-io/adios/pkg/arena"
	"github.com/adios-io/adios/pkg/container"
	"github.com/adios-io/adios/pkg/dimtype"
	"github.com/adios-io/adios/pkg/metadata"
	"github.com/adios-io/adios/pkg/stats"
)

func testInit(t *testing.T) {
	t.Helper()
	if instance != nil {
		return
	}
	if err := Init(Config{
		BufferMB:       1,
		OverflowPolicy: arena.PolicyAbort,
		DefaultStats:   stats.Bitmap(stats.KindMin | stats.KindMax | stats.KindSum | stats.KindSumSq),
	}); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func declareMeshGroup(t *testing.T) *metadata.Group {
	t.Helper()
	// Each test gets its own group name since the engine singleton (and its
	// graph) is shared process-wide across this file's test functions.
	g, err := GetEngine().Graph().DeclareGroup("mesh-"+t.Name(), "", true)
	if err != nil {
		t.Fatalf("DeclareGroup: %v", err)
	}
	g.StatsFlag = true

	if _, err := g.DefineVar("npoints", "", dimtype.TypeInt, nil, nil, nil, ""); err != nil {
		t.Fatalf("DefineVar(npoints): %v", err)
	}
	npoints, _ := g.FindVarByName("", "npoints")

	if _, err := g.DefineVar("U", "", dimtype.TypeDouble,
		[]dimtype.Expr{dimtype.VarRef(npoints.ID)}, nil, nil, ""); err != nil {
		t.Fatalf("DefineVar(U): %v", err)
	}
	return g
}

type captureTransport struct {
	pg      container.PG
	partial bool
	mode    metadata.FileMode
	called  bool
}

func (c *captureTransport) Publish(pg container.PG, partial bool, mode metadata.FileMode) error {
	c.pg = pg
	c.partial = partial
	c.mode = mode
	c.called = true
	return nil
}

func TestWritePipelineScalarAndArray(t *testing.T) {
	testInit(t)
	g := declareMeshGroup(t)

	xport := &captureTransport{}
	f, err := Open(g, metadata.ModeWrite, 0, xport)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.State() != StateOpened {
		t.Fatalf("state = %v, want Opened", f.State())
	}

	if _, err := f.GroupSize(4 + 3*8); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}
	if f.State() != StateSized {
		t.Fatalf("state = %v, want Sized", f.State())
	}

	if err := f.Write("", "npoints", 3); err != nil {
		t.Fatalf("write npoints: %v", err)
	}
	if err := f.Write("", "U", []float64{1.5, 2.5, 3.5}); err != nil {
		t.Fatalf("write U: %v", err)
	}
	if f.State() != StateWriting {
		t.Fatalf("state = %v, want Writing", f.State())
	}

	if err := f.Close(false); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if f.State() != StateClosed {
		t.Fatalf("state = %v, want Closed", f.State())
	}
	if !xport.called {
		t.Fatalf("transport.Publish was never called")
	}
	if len(xport.pg.Vars) != 2 {
		t.Fatalf("PG has %d vars, want 2", len(xport.pg.Vars))
	}
}

func TestWriteRejectsZeroDimensionalArrayData(t *testing.T) {
	testInit(t)
	g := declareMeshGroup(t)

	f, err := Open(g, metadata.ModeWrite, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.GroupSize(64); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}

	if err := f.Write("", "npoints", 0); err != nil {
		t.Fatalf("write npoints: %v", err)
	}
	if err := f.Write("", "U", []float64{}); err == nil {
		t.Errorf("expected err_invalid_data for a zero-dimensional array write")
	}
}

func TestWriteReplacesEarlierEntryInSameStep(t *testing.T) {
	testInit(t)
	g := declareMeshGroup(t)

	f, err := Open(g, metadata.ModeWrite, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.GroupSize(64); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}

	if err := f.Write("", "npoints", 1); err != nil {
		t.Fatalf("write npoints (1): %v", err)
	}
	if err := f.Write("", "npoints", 2); err != nil {
		t.Fatalf("write npoints (2): %v", err)
	}

	entries := f.written.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (later write should replace earlier)", len(entries))
	}
}

func TestWriteOutsideSizedStateFails(t *testing.T) {
	testInit(t)
	g := declareMeshGroup(t)

	f, err := Open(g, metadata.ModeWrite, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := f.Write("", "npoints", 1); err == nil {
		t.Errorf("expected write before group_size to fail")
	}
}

func TestCloseOnClosedHandleFails(t *testing.T) {
	testInit(t)
	g := declareMeshGroup(t)

	f, err := Open(g, metadata.ModeWrite, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.GroupSize(64); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}
	if err := f.Write("", "npoints", 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(false); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := f.Close(false); err == nil {
		t.Errorf("expected second Close on an already-closed handle to fail")
	}
}

func TestWriteToDimVarAllowedInReadMode(t *testing.T) {
	testInit(t)
	g := declareMeshGroup(t)
	npoints, _ := g.FindVarByName("", "npoints")
	npoints.IsDim = true

	f, err := Open(g, metadata.ModeRead, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.GroupSize(64); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}
	if err := f.Write("", "npoints", 3); err != nil {
		t.Errorf("expected dim-only var write to succeed in read mode, got: %v", err)
	}
	if err := f.Write("", "U", []float64{1, 2, 3}); err == nil {
		t.Errorf("expected non-dim var write to fail in read mode")
	}
}

func TestStatsDisabledWhenGroupStatsFlagFalse(t *testing.T) {
	testInit(t)
	g := declareMeshGroup(t)
	g.StatsFlag = false

	f, err := Open(g, metadata.ModeWrite, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.GroupSize(64); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}
	if err := f.Write("", "npoints", 3); err != nil {
		t.Fatalf("write: %v", err)
	}
	npoints, _ := g.FindVarByName("", "npoints")
	if f.statsFor(npoints) != nil {
		t.Errorf("statsFor should return nil when the group's stats_flag is false")
	}
}

// TestReadBackWrittenValues exercises spec.md §8's Round-trip property
// end-to-end: write a scalar and an array variable through the normal
// engine pipeline, decode the resulting container with OpenRead, and
// compare the values byte-for-byte (element-for-element) against what was
// written, rather than just the counts TestWritePipelineScalarAndArray
// checks.
func TestReadBackWrittenValues(t *testing.T) {
	testInit(t)
	g := declareMeshGroup(t)

	xport := &captureTransport{}
	f, err := Open(g, metadata.ModeWrite, 0, xport)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.GroupSize(4 + 3*8); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}

	wantNpoints := 3
	wantU := []float64{1.5, 2.5, 3.5}
	if err := f.Write("", "npoints", wantNpoints); err != nil {
		t.Fatalf("write npoints: %v", err)
	}
	if err := f.Write("", "U", wantU); err != nil {
		t.Fatalf("write U: %v", err)
	}
	if err := f.Close(false); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out, err := os.CreateTemp(t.TempDir(), "adios-*.bp")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer out.Close()
	if err := container.WriteFile(out, []container.PG{xport.pg}, false); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rf, err := OpenRead(out)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}

	var gotNpoints int32
	if _, err := rf.Read("npoints", &gotNpoints); err != nil {
		t.Fatalf("Read(npoints): %v", err)
	}
	if int(gotNpoints) != wantNpoints {
		t.Errorf("npoints round-trip = %d, want %d", gotNpoints, wantNpoints)
	}

	gotU := make([]float64, len(wantU))
	n, err := rf.Read("U", &gotU)
	if err != nil {
		t.Fatalf("Read(U): %v", err)
	}
	if n != len(wantU) {
		t.Fatalf("Read(U) copied %d elements, want %d", n, len(wantU))
	}
	for i := range wantU {
		if gotU[i] != wantU[i] {
			t.Errorf("U[%d] round-trip = %v, want %v", i, gotU[i], wantU[i])
		}
	}

	if _, err := rf.Read("does_not_exist", &gotNpoints); err == nil {
		t.Errorf("expected reading an unknown variable name to fail")
	}
}
