// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package adioserr

import "testing"

func TestRegistrySetLast(t *testing.T) {
	var r Registry
	if r.Last() != nil {
		t.Fatalf("zero value registry should report no last error")
	}

	r.Set(InvalidDimension, "unresolved reference to %q", "npoints")
	last := r.Last()
	if last == nil {
		t.Fatalf("expected a last error after Set")
	}
	if last.Code != InvalidDimension {
		t.Errorf("Code = %v, want %v", last.Code, InvalidDimension)
	}
	if last.Message != `unresolved reference to "npoints"` {
		t.Errorf("Message = %q", last.Message)
	}
}

func TestRegistryClear(t *testing.T) {
	var r Registry
	r.Set(BufferOverflow, "too big")
	r.Clear()
	if r.Last() != nil {
		t.Errorf("Clear should reset the registry to nil")
	}
}

func TestCodeRecoverable(t *testing.T) {
	cases := []struct {
		code        Code
		recoverable bool
	}{
		{InvalidVarName, true},
		{InvalidDimension, true},
		{OutOfBound, true},
		{BufferOverflow, false},
		{CollectiveTimeout, false},
		{NoMemory, false},
	}
	for _, c := range cases {
		if got := c.code.Recoverable(); got != c.recoverable {
			t.Errorf("%v.Recoverable() = %v, want %v", c.code, got, c.recoverable)
		}
	}
}

func TestProcessWideRegistry(t *testing.T) {
	ClearLast()
	Set(DuplicateName, "variable %q already declared", "T")
	if Last() == nil || Last().Code != DuplicateName {
		t.Fatalf("process-wide Set/Last did not round-trip")
	}
	ClearLast()
	if Last() != nil {
		t.Errorf("ClearLast should reset the process-wide registry")
	}
}
