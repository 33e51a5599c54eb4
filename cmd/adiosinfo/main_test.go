// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"testing"

	"github.com/adios-io/adios/pkg/container"
	"github.com/adios-io/adios/pkg/dimtype"
)

func samplePG(rank, timeIndex uint32) container.PG {
	return container.PG{
		Header: container.PGHeader{GroupName: "mesh", ProcessID: rank, TimeIndex: timeIndex},
		Vars: []container.VarRecord{
			{MemberID: 0, Name: "npoints", Type: dimtype.TypeInt},
			{MemberID: 1, Name: "U", Type: dimtype.TypeDouble, Dims: []container.DimRecord{{Local: 44, DimVarID: 1}}},
		},
		Attrs: []container.AttrRecord{
			{MemberID: 0, Name: "units", Type: dimtype.TypeString, Value: []byte("m")},
		},
	}
}

func TestRunDumpsVarsAndAttrs(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "adios-*.bp")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := f.Name()

	pgs := []container.PG{samplePG(0, 0), samplePG(1, 0)}
	if err := container.WriteFile(f, pgs, false); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f.Close()

	if err := run(path, true, true); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunRejectsMissingFile(t *testing.T) {
	if err := run("/nonexistent/path.bp", true, false); err == nil {
		t.Fatal("expected run to fail on a missing file")
	}
}
