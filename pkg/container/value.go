// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/adios-io/adios/pkg/dimtype"
)

// FindVar returns the record named name with the highest time_index across
// pgs — the variable's most recently written value, which is what
// spec.md's read(name, buf, buf_bytes) resolves against.
func FindVar(pgs []PG, name string) (VarRecord, bool) {
	var best VarRecord
	var bestTime uint32
	found := false
	for _, pg := range pgs {
		for _, v := range pg.Vars {
			if v.Name != name {
				continue
			}
			if !found || pg.Header.TimeIndex >= bestTime {
				best = v
				bestTime = pg.Header.TimeIndex
				found = true
			}
		}
	}
	return best, found
}

func characteristicPayload(rec VarRecord, kind CharacteristicKind) ([]byte, bool) {
	for _, c := range rec.Characteristics {
		if c.Kind == kind {
			return c.Payload, true
		}
	}
	return nil, false
}

// DecodeValue decodes rec's recorded value: a scalar Go value for a
// variable with no dimensions, or a slice for an array variable. It is the
// inverse of pkg/engine's scalar/array encoders — this package has no
// dependency on pkg/engine, so it keeps its own small decode switch rather
// than importing one (pkg/engine already imports pkg/container).
func DecodeValue(rec VarRecord) (interface{}, error) {
	payload, ok := characteristicPayload(rec, CharValue)
	if !ok {
		return nil, fmt.Errorf("container: variable %q has no recorded value", rec.Name)
	}
	if len(rec.Dims) == 0 {
		return decodeScalarValue(rec.Type, payload)
	}
	count := 1
	for _, d := range rec.Dims {
		count *= int(d.Local)
	}
	return decodeArrayValue(rec.Type, payload, count)
}

func decodeScalarValue(t dimtype.Type, b []byte) (interface{}, error) {
	if t == dimtype.TypeString {
		n := bytes.IndexByte(b, 0)
		if n < 0 {
			n = len(b)
		}
		return string(b[:n]), nil
	}

	r := bytes.NewReader(b)
	switch t {
	case dimtype.TypeByte:
		var v int8
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeUnsignedByte:
		var v uint8
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeShort:
		var v int16
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeUnsignedShort:
		var v uint16
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeInt:
		var v int32
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeUnsignedInt:
		var v uint32
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeLong:
		var v int64
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeUnsignedLong:
		var v uint64
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeFloat:
		var v float32
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeDouble, dimtype.TypeLongDouble:
		var v float64
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeComplex:
		var v complex64
		return v, binary.Read(r, ByteOrder, &v)
	case dimtype.TypeDoubleComplex:
		var v complex128
		return v, binary.Read(r, ByteOrder, &v)
	default:
		return nil, fmt.Errorf("container: cannot decode scalar of type %v", t)
	}
}

func decodeArrayValue(t dimtype.Type, b []byte, count int) (interface{}, error) {
	r := bytes.NewReader(b)
	switch t {
	case dimtype.TypeByte:
		out := make([]int8, count)
		return out, readEach(r, out)
	case dimtype.TypeUnsignedByte:
		out := make([]uint8, count)
		return out, readEach(r, out)
	case dimtype.TypeShort:
		out := make([]int16, count)
		return out, readEach(r, out)
	case dimtype.TypeUnsignedShort:
		out := make([]uint16, count)
		return out, readEach(r, out)
	case dimtype.TypeInt:
		out := make([]int32, count)
		return out, readEach(r, out)
	case dimtype.TypeUnsignedInt:
		out := make([]uint32, count)
		return out, readEach(r, out)
	case dimtype.TypeLong:
		out := make([]int64, count)
		return out, readEach(r, out)
	case dimtype.TypeUnsignedLong:
		out := make([]uint64, count)
		return out, readEach(r, out)
	case dimtype.TypeFloat:
		out := make([]float32, count)
		return out, readEach(r, out)
	case dimtype.TypeDouble, dimtype.TypeLongDouble:
		out := make([]float64, count)
		return out, readEach(r, out)
	case dimtype.TypeComplex:
		out := make([]complex64, count)
		return out, readEach(r, out)
	case dimtype.TypeDoubleComplex:
		out := make([]complex128, count)
		return out, readEach(r, out)
	default:
		return nil, fmt.Errorf("container: cannot decode array of type %v", t)
	}
}

// readEach fills every element of out (a slice of a fixed-width numeric
// type) by reading one element at a time, so decodeArrayValue's cases stay
// one line each.
func readEach[T any](r *bytes.Reader, out []T) error {
	for i := range out {
		if err := binary.Read(r, ByteOrder, &out[i]); err != nil {
			return fmt.Errorf("container: decoding array element %d: %w", i, err)
		}
	}
	return nil
}
