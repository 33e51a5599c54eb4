// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metadata

import "testing"

func TestWrittenLogReplacesSameMember(t *testing.T) {
	log := NewWrittenLog()
	v := &Variable{ID: 7, Name: "step"}

	log.CopyVarWritten(v, []byte{1, 0, 0, 0}, nil, nil, 0)
	log.CopyVarWritten(v, []byte{2, 0, 0, 0}, nil, nil, 128)

	entries := log.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected a single entry for repeated writes to the same variable, got %d", len(entries))
	}
	if entries[0].WriteOffset != 128 {
		t.Errorf("WriteOffset = %d, want 128 (the later write)", entries[0].WriteOffset)
	}
	if entries[0].Scalar[0] != 2 {
		t.Errorf("Scalar = %v, want the later write's payload", entries[0].Scalar)
	}
}

func TestWrittenLogPreservesFirstWriteOrder(t *testing.T) {
	log := NewWrittenLog()
	a := &Variable{ID: 1, Name: "a"}
	b := &Variable{ID: 2, Name: "b"}

	log.CopyVarWritten(a, []byte{1}, nil, nil, 0)
	log.CopyVarWritten(b, []byte{2}, nil, nil, 8)
	log.CopyVarWritten(a, []byte{3}, nil, nil, 16)

	entries := log.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Var.Name != "a" || entries[1].Var.Name != "b" {
		t.Errorf("order = %s, %s, want a, b", entries[0].Var.Name, entries[1].Var.Name)
	}
}

func TestWrittenLogBorrowedArray(t *testing.T) {
	log := NewWrittenLog()
	arr := []float64{1, 2, 3}
	v := &Variable{ID: 4, Name: "U"}

	log.CopyVarWritten(v, nil, arr, []uint64{3}, 0)

	entries := log.Entries()
	borrowed, ok := entries[0].Borrowed.([]float64)
	if !ok {
		t.Fatalf("Borrowed is not []float64: %T", entries[0].Borrowed)
	}
	if &borrowed[0] != &arr[0] {
		t.Errorf("borrowed slice does not alias the original backing array")
	}
}

func TestFreeVarWritten(t *testing.T) {
	log := NewWrittenLog()
	v := &Variable{ID: 1, Name: "a"}
	log.CopyVarWritten(v, []byte{1}, nil, nil, 0)

	log.FreeVarWritten()
	if log.Len() != 0 {
		t.Errorf("expected empty log after FreeVarWritten, got %d entries", log.Len())
	}

	log.CopyVarWritten(v, []byte{9}, nil, nil, 0)
	if log.Len() != 1 {
		t.Errorf("log should be reusable after FreeVarWritten")
	}
}
