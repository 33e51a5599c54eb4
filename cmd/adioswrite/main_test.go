// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adios-io/adios/pkg/container"
)

func TestRunWritesReadableContainer(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.bp")

	if err := run("", out, 8); err != nil {
		t.Fatalf("run: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	defer f.Close()

	pgs, _, varIndex, _, _, err := container.ReadFile(f)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(pgs) != 1 {
		t.Fatalf("got %d PGs, want 1", len(pgs))
	}
	if len(varIndex) != 2 {
		t.Fatalf("got %d indexed variables, want 2 (n, data)", len(varIndex))
	}
}

func TestRunRejectsUnreadableConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.bp")
	if err := run("/nonexistent/config.json", out, 8); err == nil {
		t.Fatal("expected run to fail when -config points to a missing file")
	}
}
