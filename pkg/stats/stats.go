// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stats implements the per-variable statistics engine: a bitmap of
// which reducers are active, folded across one or more parallel components
// (1 for a real scalar or array, 3 for a complex type's magnitude/real/imag
// triple).
package stats

import "github.com/adios-io/adios/pkg/adioserr"

// Kind is one bit of the statistics bitmap.
type Kind uint8

const (
	KindMin Kind = 1 << iota
	KindMax
	KindSum
	KindSumSq
	KindHist
	KindCount
)

// Bitmap is the set of reducers active for a variable.
type Bitmap uint8

// Has reports whether k is set in b.
func (b Bitmap) Has(k Kind) bool { return b&Bitmap(k) != 0 }

// Component indices for the 3-vector a complex type carries; real scalars
// and arrays use only ComponentReal (index 0 of a 1-length vector).
const (
	ComponentReal      = 0
	ComponentMagnitude = 0
	ComponentImag      = 2
)

// Histogram owns its breaks/frequencies arrays and is released separately
// from the rest of a Component's slots, since unlike a scalar min/max/sum it
// is not a single flat value.
type Histogram struct {
	Breaks      []float64
	Frequencies []uint64
}

// NewHistogram returns a histogram with len(breaks)+1 buckets: values below
// breaks[0] fall in bucket 0, values at or above breaks[len-1] fall in the
// last bucket.
func NewHistogram(breaks []float64) *Histogram {
	b := make([]float64, len(breaks))
	copy(b, breaks)
	return &Histogram{
		Breaks:      b,
		Frequencies: make([]uint64, len(b)+1),
	}
}

// Fold increments the bucket v falls into.
func (h *Histogram) Fold(v float64) {
	lo, hi := 0, len(h.Breaks)
	for lo < hi {
		mid := (lo + hi) / 2
		if v < h.Breaks[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	h.Frequencies[lo]++
}

// Component is the parallel statistics vector for one value component
// (the whole scalar/array for a real type, or one of magnitude/real/imag
// for a complex type).
type Component struct {
	Min, Max, Sum, SumSq float64
	Count                uint64
	Hist                 *Histogram

	seen bool
}

// Fold applies one observed value to every reducer bit is set in the
// bitmap.
func (c *Component) Fold(bitmap Bitmap, v float64) {
	if bitmap.Has(KindCount) {
		c.Count++
	}
	if bitmap.Has(KindSum) {
		c.Sum += v
	}
	if bitmap.Has(KindSumSq) {
		c.SumSq += v * v
	}
	if bitmap.Has(KindMin) && (!c.seen || v < c.Min) {
		c.Min = v
	}
	if bitmap.Has(KindMax) && (!c.seen || v > c.Max) {
		c.Max = v
	}
	c.seen = true
	if bitmap.Has(KindHist) && c.Hist != nil {
		c.Hist.Fold(v)
	}
}

// Release drops the component's histogram (its non-flat, separately owned
// slot) so the rest of the component can be reused or discarded freely.
func (c *Component) Release() {
	c.Hist = nil
}

// Stats is the full statistics state for one variable: a bitmap plus one
// Component per parallel value component.
type Stats struct {
	Bitmap     Bitmap
	Components []Component
}

// New allocates statistics state for a variable with numComponents parallel
// components (1 for real, 3 for complex). Per invariant S1, a zero bitmap
// allocates no slots at all — callers must pass bitmap=0 whenever the
// owning group's stats_flag is false, and must not call Fold in that case
// either (Fold is a no-op for a zero bitmap, but skipping the call avoids
// even the index-bounds work).
func New(bitmap Bitmap, numComponents int, histBreaks []float64) *Stats {
	if bitmap == 0 {
		return &Stats{}
	}
	comps := make([]Component, numComponents)
	if bitmap.Has(KindHist) {
		for i := range comps {
			comps[i].Hist = NewHistogram(histBreaks)
		}
	}
	return &Stats{Bitmap: bitmap, Components: comps}
}

// Fold folds v into the statistics component at componentIdx (0 for a real
// value; 0/1/2 = magnitude/real/imag for a complex one). A disabled bitmap
// (stats_flag=false) makes this a no-op, per invariant S1.
func (s *Stats) Fold(componentIdx int, v float64) error {
	if s.Bitmap == 0 {
		return nil
	}
	if componentIdx < 0 || componentIdx >= len(s.Components) {
		return adioserr.Set(adioserr.OutOfBound, "statistics component index %d out of bounds (have %d)", componentIdx, len(s.Components))
	}
	s.Components[componentIdx].Fold(s.Bitmap, v)
	return nil
}

// Release frees every component's histogram. Safe to call on a Stats
// allocated with a zero bitmap.
func (s *Stats) Release() {
	for i := range s.Components {
		s.Components[i].Release()
	}
}
