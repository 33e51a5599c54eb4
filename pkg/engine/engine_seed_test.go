// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"testing"

	"github.com/adios-io/adios/pkg/adioserr"
	"github.com/adios-io/adios/pkg/container"
	"github.com/adios-io/adios/pkg/dimtype"
	"github.com/adios-io/adios/pkg/metadata"
)

// TestTimeSteppedScalarProducesOnePGPerStep reproduces the time-stepped
// scalar seed scenario: a time-indexed scalar step and a fixed-length 1-D
// array x[10], written across three steps.
func TestTimeSteppedScalarProducesOnePGPerStep(t *testing.T) {
	testInit(t)

	g, err := GetEngine().Graph().DeclareGroup("timestepped-"+t.Name(), "step", true)
	if err != nil {
		t.Fatalf("DeclareGroup: %v", err)
	}
	if _, err := g.DefineVar("step", "", dimtype.TypeInt, nil, nil, nil, ""); err != nil {
		t.Fatalf("DefineVar(step): %v", err)
	}
	if _, err := g.DefineVar("x", "", dimtype.TypeInt,
		[]dimtype.Expr{dimtype.Literal(10)}, nil, nil, ""); err != nil {
		t.Fatalf("DefineVar(x): %v", err)
	}

	for s := int32(0); s < 3; s++ {
		tp := &captureTransport{}
		f, err := Open(g, metadata.ModeWrite, 0, tp)
		if err != nil {
			t.Fatalf("step %d: Open: %v", s, err)
		}
		if _, err := f.GroupSize(4 + 10*4); err != nil {
			t.Fatalf("step %d: GroupSize: %v", s, err)
		}
		if err := f.Write("", "step", s); err != nil {
			t.Fatalf("step %d: write step: %v", s, err)
		}
		x := make([]int32, 10)
		for i := range x {
			x[i] = s
		}
		if err := f.Write("", "x", x); err != nil {
			t.Fatalf("step %d: write x: %v", s, err)
		}
		if err := f.Close(false); err != nil {
			t.Fatalf("step %d: Close: %v", s, err)
		}
		if !tp.called || tp.partial {
			t.Fatalf("step %d: expected a complete PG to be published", s)
		}
		if got, want := tp.pg.Header.TimeIndex, uint32(s); got != want {
			t.Errorf("step %d: PG time_index = %d, want %d", s, got, want)
		}
	}
}

// TestBufferOverflowAbortRejectsOversizedGroupSize reproduces the buffer
// overflow seed scenario: a 1 MB buffer cannot satisfy a group_size request
// for a 4 MB array, and GroupSize (the operation arena exhaustion surfaces
// through under the abort policy) must report err_buffer_overflow rather
// than silently truncating the reservation.
func TestBufferOverflowAbortRejectsOversizedGroupSize(t *testing.T) {
	// Every test in this package shares one process-wide engine singleton
	// (testInit's Init call is idempotent), fixed at a 1 MB buffer with the
	// abort policy — well under the 4 MB this test declares.
	testInit(t)

	g, err := GetEngine().Graph().DeclareGroup("overflow-"+t.Name(), "", false)
	if err != nil {
		t.Fatalf("DeclareGroup: %v", err)
	}
	if _, err := g.DefineVar("big", "", dimtype.TypeByte,
		[]dimtype.Expr{dimtype.Literal(4 * 1024 * 1024)}, nil, nil, ""); err != nil {
		t.Fatalf("DefineVar(big): %v", err)
	}

	f, err := Open(g, metadata.ModeWrite, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err = f.GroupSize(4 * 1024 * 1024)
	if err == nil {
		t.Fatal("expected GroupSize to fail when the declared payload exceeds the arena's buffer")
	}
	aerr, ok := err.(*adioserr.Error)
	if !ok {
		t.Fatalf("error type = %T, want *adioserr.Error", err)
	}
	if aerr.Code != adioserr.BufferOverflow {
		t.Errorf("error code = %v, want BufferOverflow", aerr.Code)
	}
}

// TestDimensionResolutionMatchesWrittenScalar exercises the dimension
// resolution invariant directly: the dimension value recorded in the PG for
// an array keyed to a scalar equals the value written for that scalar
// earlier in the same step.
func TestDimensionResolutionMatchesWrittenScalar(t *testing.T) {
	testInit(t)
	g := declareMeshGroup(t)

	tp := &captureTransport{}
	f, err := Open(g, metadata.ModeWrite, 0, tp)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.GroupSize(4 + 5*8); err != nil {
		t.Fatalf("GroupSize: %v", err)
	}
	if err := f.Write("", "npoints", int32(5)); err != nil {
		t.Fatalf("write npoints: %v", err)
	}
	if err := f.Write("", "U", []float64{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("write U: %v", err)
	}
	if err := f.Close(false); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var u *container.VarRecord
	for i := range tp.pg.Vars {
		if tp.pg.Vars[i].Name == "U" {
			u = &tp.pg.Vars[i]
		}
	}
	if u == nil {
		t.Fatal("U not found in written PG")
	}
	if len(u.Dims) != 1 || u.Dims[0].Local != 5 {
		t.Errorf("U.Dims = %+v, want a single dim with Local=5 (the value written for npoints)", u.Dims)
	}
}

// TestAppendWithZeroWritesSkipsPublish covers §8's append-idempotence
// property: opening a group in append mode and closing without writing
// anything must not hand a new PG to the transport at all, so the
// underlying file (whatever transport.Publish would otherwise rewrite) is
// left untouched.
func TestAppendWithZeroWritesSkipsPublish(t *testing.T) {
	testInit(t)

	g, err := GetEngine().Graph().DeclareGroup("append-noop-"+t.Name(), "", true)
	if err != nil {
		t.Fatalf("DeclareGroup: %v", err)
	}
	if _, err := g.DefineVar("step", "", dimtype.TypeInt, nil, nil, nil, ""); err != nil {
		t.Fatalf("DefineVar(step): %v", err)
	}

	tp := &captureTransport{}
	f, err := Open(g, metadata.ModeAppend, 0, tp)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := f.Close(false); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if tp.called {
		t.Errorf("expected Publish not to be called for a zero-write append close, got %+v", tp.pg)
	}
	if f.State() != StateClosed {
		t.Errorf("handle should still retire to Closed even when the publish is skipped, got %s", f.State())
	}
}
