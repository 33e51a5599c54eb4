// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"math/cmplx"
	"reflect"

	"github.com/adios-io/adios/pkg/metadata"
	"github.com/adios-io/adios/pkg/stats"
)

// componentReal is the real-part index of a complex type's 3-vector
// (magnitude, real, imag). pkg/stats names index 0 (ComponentMagnitude, and
// ComponentReal for the single slot of a real value) and index 2
// (ComponentImag), but has no name for index 1.
const componentReal = 1

// statsFor returns (creating if needed) the Stats record for v, or nil if
// the owning group has statistics disabled (invariant S1).
func (f *File) statsFor(v *metadata.Variable) *stats.Stats {
	if !f.group.StatsFlag {
		return nil
	}
	if s, ok := f.varStats[v.ID]; ok {
		return s
	}
	s := stats.New(f.engine.cfg.DefaultStats, v.Type.NumComponents(), f.engine.cfg.HistogramBreaks)
	f.varStats[v.ID] = s
	return s
}

// foldValue folds every element of value into v's statistics, dispatching
// on the concrete Go type the caller wrote. Unrecognized types are folded
// as zero components (a no-op, since Fold degenerates for disabled
// bitmaps anyway) rather than erroring — statistics are best-effort
// bookkeeping, not a contract on the write itself.
func (f *File) foldValue(v *metadata.Variable, value interface{}) {
	st := f.statsFor(v)
	if st == nil || st.Bitmap == 0 {
		return
	}

	switch vv := value.(type) {
	case complex64:
		foldComplex(st, complex128(vv))
	case complex128:
		foldComplex(st, vv)
	case []complex64:
		for _, c := range vv {
			foldComplex(st, complex128(c))
		}
	case []complex128:
		for _, c := range vv {
			foldComplex(st, c)
		}
	case string:
		// strings carry no numeric statistics.
	default:
		foldReal(st, value)
	}
}

func foldComplex(st *stats.Stats, c complex128) {
	st.Fold(stats.ComponentMagnitude, cmplx.Abs(c))
	st.Fold(componentReal, real(c))
	st.Fold(stats.ComponentImag, imag(c))
}

// foldReal handles every non-complex, non-string scalar or slice by
// reflecting over it: a single value folds once, a slice folds
// element-by-element.
func foldReal(st *stats.Stats, value interface{}) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		for i := 0; i < rv.Len(); i++ {
			if f, ok := toFloat64(rv.Index(i).Interface()); ok {
				st.Fold(stats.ComponentReal, f)
			}
		}
		return
	}
	if f, ok := toFloat64(value); ok {
		st.Fold(stats.ComponentReal, f)
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
