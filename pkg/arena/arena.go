// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package arena implements the process-wide byte arena a write session
// reserves its Process Group payload from.
//
// Grounded on the teacher's PersistentBufferPool (pkg/metricstore/buffer.go):
// same mutex-guarded, Get/Put-shaped lifecycle, but collapsed from a
// per-metric ring-buffer chain into the single reservation-frontier arena
// the specification calls for, since a PG is assembled once per step rather
// than streamed continuously like a time series.
package arena

import (
	"sync"

	"github.com/adios-io/adios/pkg/adioserr"
	"github.com/adios-io/adios/pkg/metrics"
)

// When controls when the backing allocation actually happens.
type When uint8

const (
	WhenNow When = iota
	WhenBeforeOpen
	WhenAfterOpen
	WhenEndOfStep
)

// OverflowPolicy selects what Reserve does when a request would exceed the
// arena's capacity.
type OverflowPolicy uint8

const (
	PolicyAbort OverflowPolicy = iota
	PolicySpillToDisk
	PolicyDropOldestPG
)

// SpillFunc persists the arena's current contents (everything reserved so
// far) somewhere durable and returns a path identifying where, so the
// frontier can be reset to zero. Required when policy is PolicySpillToDisk.
type SpillFunc func(data []byte) (path string, err error)

// DropOldestFunc evicts the single oldest reserved region and reports how
// many bytes at the front of the arena became free. Required when policy is
// PolicyDropOldestPG.
type DropOldestFunc func() (freedBytes int, ok bool)

// View is a read-only snapshot of everything reserved in the arena since
// the last Release.
type View struct {
	Data   []byte
	Offset uint64
}

// Arena is a process-wide byte arena with a single reservation frontier.
// The zero value is not ready to use; construct with New.
type Arena struct {
	mu     sync.Mutex
	policy OverflowPolicy
	mb     int
	when   When

	data     []byte
	frontier int

	spill      SpillFunc
	dropOldest DropOldestFunc
	spilled    []string
}

// New returns an arena governed by the given overflow policy. Capacity is
// set separately via Allocate, matching allocate_buffer(MB, when) in the
// API surface.
func New(policy OverflowPolicy) *Arena {
	return &Arena{policy: policy}
}

// SetSpillFunc registers the callback used by PolicySpillToDisk.
func (a *Arena) SetSpillFunc(f SpillFunc) { a.spill = f }

// SetDropOldestFunc registers the callback used by PolicyDropOldestPG.
func (a *Arena) SetDropOldestFunc(f DropOldestFunc) { a.dropOldest = f }

// Allocate records the arena's capacity and allocation timing. When is
// WhenNow, the backing slice is allocated immediately; otherwise the caller
// (normally pkg/engine, at the matching lifecycle point) must call
// EnsureAllocated.
func (a *Arena) Allocate(mb int, when When) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mb = mb
	a.when = when
	if when == WhenNow {
		a.ensureAllocated()
	}
}

// When reports the configured allocation timing.
func (a *Arena) When() When {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.when
}

func (a *Arena) ensureAllocated() {
	if a.data == nil {
		a.data = make([]byte, a.mb<<20)
	}
}

// EnsureAllocated performs the (idempotent) lazy allocation for
// WhenBeforeOpen/WhenAfterOpen/WhenEndOfStep timing. A no-op once the
// backing slice exists.
func (a *Arena) EnsureAllocated() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureAllocated()
}

// Capacity returns the arena's total byte capacity (0 if not yet allocated).
func (a *Arena) Capacity() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.data)
}

// Reserve carves out n bytes starting at the current frontier and advances
// the frontier, applying the configured overflow policy if the request
// would not fit.
func (a *Arena) Reserve(n int) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureAllocated()

	if a.frontier+n > len(a.data) {
		if err := a.handleOverflow(n); err != nil {
			return 0, err
		}
	}

	offset := uint64(a.frontier)
	a.frontier += n
	metrics.ArenaBytesReserved.Set(float64(a.frontier))
	return offset, nil
}

// Reserved returns the number of bytes currently reserved (the frontier)
// since the last Release.
func (a *Arena) Reserved() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frontier
}

func (a *Arena) handleOverflow(n int) error {
	metrics.ArenaOverflows.Inc()
	switch a.policy {
	case PolicySpillToDisk:
		if a.spill == nil {
			return adioserr.Set(adioserr.BufferOverflow, "arena: spill policy configured but no spill function registered")
		}
		path, err := a.spill(a.data[:a.frontier])
		if err != nil {
			return adioserr.Set(adioserr.BufferOverflow, "arena: spill to disk failed: %v", err)
		}
		a.spilled = append(a.spilled, path)
		a.frontier = 0
		if n > len(a.data) {
			return adioserr.Set(adioserr.BufferOverflow, "arena: single reservation of %d bytes exceeds total capacity %d even after spilling", n, len(a.data))
		}
		return nil

	case PolicyDropOldestPG:
		if a.dropOldest == nil {
			return adioserr.Set(adioserr.BufferOverflow, "arena: drop-oldest policy configured but no eviction function registered")
		}
		for a.frontier+n > len(a.data) {
			freed, ok := a.dropOldest()
			if !ok {
				return adioserr.Set(adioserr.BufferOverflow, "arena: reserve of %d bytes exceeds capacity even after evicting all process groups", n)
			}
			a.frontier -= freed
			if a.frontier < 0 {
				a.frontier = 0
			}
		}
		return nil

	default: // PolicyAbort
		return adioserr.Set(adioserr.BufferOverflow, "arena: reserve of %d bytes exceeds capacity %d (frontier at %d)", n, len(a.data), a.frontier)
	}
}

// WriteAt copies b into the arena at offset, which must have come from a
// prior Reserve. Only scalar, string and statistics payloads ever go
// through WriteAt (invariant D1): array payloads are borrowed in place by
// pkg/metadata's WrittenLog and never copied into the arena.
func (a *Arena) WriteAt(offset uint64, b []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	end := offset + uint64(len(b))
	if end > uint64(len(a.data)) {
		return adioserr.Set(adioserr.OutOfBound, "arena: write_at(offset=%d, len=%d) exceeds arena size %d", offset, len(b), len(a.data))
	}
	copy(a.data[offset:], b)
	return nil
}

// Snapshot returns a copy of everything reserved in the arena since the
// last Release, ready to hand to a transport.
func (a *Arena) Snapshot() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]byte, a.frontier)
	copy(out, a.data[:a.frontier])
	return View{Data: out, Offset: 0}
}

// Release resets the reservation frontier, signaling that the transport
// has finished consuming the most recent snapshot and the arena's storage
// may be reused for the next step.
func (a *Arena) Release(View) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frontier = 0
	metrics.ArenaBytesReserved.Set(0)
}

// SpilledFiles returns the paths written by the spill policy so far, in
// order.
func (a *Arena) SpilledFiles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.spilled))
	copy(out, a.spilled)
	return out
}
