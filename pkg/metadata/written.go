// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metadata

import "github.com/adios-io/adios/pkg/adioserr"

// FileMode is the mode a handle was opened in.
type FileMode uint8

const (
	ModeWrite FileMode = iota
	ModeAppend
	ModeRead
)

// CheckWritable enforces the mode rule from §4.B/§4.F: writes are rejected
// in read mode, except to variables tagged as dimension-only (IsDim), which
// remain writable so a reader-side rescan can still update them.
func CheckWritable(mode FileMode, v *Variable) error {
	if mode != ModeRead || v.IsDim {
		return nil
	}
	return adioserr.Set(adioserr.InvalidFileMode, "cannot write variable %q: file is open in read mode", v.Name)
}

// WrittenEntry is one snapshot in a session's written-var log: the
// variable's state as of its last write this step, ready for the container
// codec to serialize at close.
//
// Exactly one of Scalar or Borrowed is populated, per invariant D1: scalar
// and string payloads are copied (Scalar), array payloads are borrowed
// in place (Borrowed holds the caller's slice itself, so the backing array
// is never copied into the arena — only its resolved dims and offset are).
type WrittenEntry struct {
	Var          *Variable
	Scalar       []byte
	Borrowed     interface{}
	ResolvedDims []uint64
	WriteOffset  uint64
}

// WrittenLog is the per-open-file append-only write record used to build
// the PG at close. A second write of the same variable within one step
// replaces its entry in place (same member id keeps the last offset),
// rather than appending a duplicate, per §4.F's write-replace tie-break.
type WrittenLog struct {
	byMemberID map[uint32]int
	entries    []WrittenEntry
}

// NewWrittenLog returns an empty written-var log for a freshly opened
// session.
func NewWrittenLog() *WrittenLog {
	return &WrittenLog{byMemberID: make(map[uint32]int)}
}

// CopyVarWritten snapshots v's current write into the log, whether as an
// owned copy (scalar, string) or a borrow descriptor (array: the slice
// itself plus its resolved dimensions), replacing any earlier entry for
// the same variable in this step.
func (l *WrittenLog) CopyVarWritten(v *Variable, scalar []byte, borrowed interface{}, resolvedDims []uint64, offset uint64) {
	entry := WrittenEntry{
		Var:          v,
		Scalar:       scalar,
		Borrowed:     borrowed,
		ResolvedDims: resolvedDims,
		WriteOffset:  offset,
	}
	if idx, exists := l.byMemberID[v.ID]; exists {
		l.entries[idx] = entry
		return
	}
	l.byMemberID[v.ID] = len(l.entries)
	l.entries = append(l.entries, entry)
}

// Entries returns the log's entries in first-write order. The returned
// slice is a fresh copy safe for the caller to range over while the log is
// reset.
func (l *WrittenLog) Entries() []WrittenEntry {
	out := make([]WrittenEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports how many distinct variables have been written this step.
func (l *WrittenLog) Len() int { return len(l.entries) }

// FreeVarWritten discards the log's contents, releasing its entries (and,
// transitively, any scalar copies they held) so the session can start a
// fresh step.
func (l *WrittenLog) FreeVarWritten() {
	l.entries = nil
	l.byMemberID = make(map[uint32]int)
}
