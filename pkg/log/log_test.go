// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func resetLevels(t *testing.T) {
	t.Helper()
	SetLevel("debug")
	t.Cleanup(func() { SetLevel("debug") })
}

func TestSetLevelDiscardsBelowThreshold(t *testing.T) {
	resetLevels(t)
	SetLevel("warn")

	for l := LevelDebug; l < LevelWarn; l++ {
		if sinks[l].writer != io.Discard {
			t.Errorf("level %v should be discarded below the warn threshold", l)
		}
	}
	for l := LevelWarn; l < numLevels; l++ {
		if sinks[l].writer == io.Discard {
			t.Errorf("level %v should remain enabled at/above the warn threshold", l)
		}
	}
}

func TestSetLevelEnablesAtAndAboveThreshold(t *testing.T) {
	resetLevels(t)
	SetLevel("err")

	var buf bytes.Buffer
	sinks[LevelError].plain.SetOutput(&buf)
	sinks[LevelError].stamped.SetOutput(&buf)

	Error("disk is full")
	if !strings.Contains(buf.String(), "disk is full") {
		t.Errorf("Error() output = %q, want it to contain the message", buf.String())
	}
	if !strings.Contains(buf.String(), "[ERROR]") {
		t.Errorf("Error() output = %q, want the systemd-style [ERROR] prefix", buf.String())
	}
}

func TestSetLevelUnknownNameFallsBackToDebug(t *testing.T) {
	resetLevels(t)
	SetLevel("warn")
	SetLevel("not-a-real-level")

	var buf bytes.Buffer
	sinks[LevelDebug].plain.SetOutput(&buf)

	Debug("trace message")
	if !strings.Contains(buf.String(), "trace message") {
		t.Errorf("expected an unknown SetLevel argument to fall back to debug (every level enabled), got %q", buf.String())
	}
}

func TestFatalLevelSynonymFiltersToErrAndAbove(t *testing.T) {
	resetLevels(t)
	SetLevel("fatal")

	var warnBuf, errBuf bytes.Buffer
	sinks[LevelWarn].plain.SetOutput(&warnBuf)
	sinks[LevelError].plain.SetOutput(&errBuf)

	Warn("should be silenced")
	Error("should be printed")

	if warnBuf.Len() != 0 {
		t.Errorf("Warn output after SetLevel(\"fatal\") = %q, want nothing", warnBuf.String())
	}
	if !strings.Contains(errBuf.String(), "should be printed") {
		t.Errorf("Error output after SetLevel(\"fatal\") = %q, want the message", errBuf.String())
	}
}
