// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/adios-io/adios/pkg/dimtype"
)

// encodeScalar turns a caller-supplied Go value into the raw bytes the
// container format stores for a scalar variable of type t. Strings are
// always copied (their length + NUL), matching the "string writes always
// copy" tie-break in §4.F.
func encodeScalar(t dimtype.Type, value interface{}) ([]byte, error) {
	if t == dimtype.TypeString {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("engine: scalar of type %v requires a string value, got %T", t, value)
		}
		b := make([]byte, len(s)+1)
		copy(b, s)
		return b, nil
	}

	var buf bytes.Buffer
	var err error
	switch t {
	case dimtype.TypeByte, dimtype.TypeUnsignedByte:
		err = binary.Write(&buf, binary.LittleEndian, uint8(asInt64(value)))
	case dimtype.TypeShort, dimtype.TypeUnsignedShort:
		err = binary.Write(&buf, binary.LittleEndian, uint16(asInt64(value)))
	case dimtype.TypeInt, dimtype.TypeUnsignedInt:
		err = binary.Write(&buf, binary.LittleEndian, uint32(asInt64(value)))
	case dimtype.TypeLong, dimtype.TypeUnsignedLong:
		err = binary.Write(&buf, binary.LittleEndian, uint64(asInt64(value)))
	case dimtype.TypeFloat:
		f, ok := value.(float32)
		if !ok {
			f = float32(asFloat64(value))
		}
		err = binary.Write(&buf, binary.LittleEndian, f)
	case dimtype.TypeDouble, dimtype.TypeLongDouble:
		err = binary.Write(&buf, binary.LittleEndian, asFloat64(value))
	case dimtype.TypeComplex:
		c, ok := value.(complex64)
		if !ok {
			c = complex64(asComplex128(value))
		}
		err = binary.Write(&buf, binary.LittleEndian, c)
	case dimtype.TypeDoubleComplex:
		err = binary.Write(&buf, binary.LittleEndian, asComplex128(value))
	default:
		return nil, fmt.Errorf("engine: cannot encode scalar of type %v", t)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeArrayValue serializes a borrowed array variable's value (a slice of
// count elements) into its on-disk representation: each element encoded the
// same way a scalar of type t would be, back to back. This is what lets the
// read API (pkg/container.DecodeValue) reproduce an array write exactly,
// per spec.md §8's "Round-trip" property; it runs at Close, not at Write,
// so invariant D1 (arrays are only borrowed, never copied into the arena)
// is unaffected — this copy feeds the on-disk record, not the arena.
func encodeArrayValue(t dimtype.Type, value interface{}, count int) ([]byte, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("engine: array value must be a slice or array, got %T", value)
	}
	var buf bytes.Buffer
	for i := 0; i < count; i++ {
		raw, err := encodeScalar(t, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("encoding array element %d: %w", i, err)
		}
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// asInt64/asFloat64/asComplex128 accept the common numeric Go types a
// caller might reasonably pass for a declared scalar, widening to a common
// representation before the final narrowing cast in encodeScalar.
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return float64(asInt64(v))
	}
}

func asComplex128(v interface{}) complex128 {
	switch n := v.(type) {
	case complex64:
		return complex128(n)
	case complex128:
		return n
	default:
		return complex(asFloat64(v), 0)
	}
}

// toUint64 converts value to a non-negative u64 usable as a dimension
// source, when value is one of the integer kinds a dimension-bearing
// scalar would realistically carry. Floats and complex values are never
// valid dimension sources and report ok=false.
func toUint64(value interface{}) (uint64, bool) {
	switch n := value.(type) {
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int8:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int16:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int32:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}

// decodeScalarAsUint64 is the inverse of encodeScalar for the integer
// types, used to resolve a literal attribute value into a dimension
// source.
func decodeScalarAsUint64(t dimtype.Type, b []byte) (uint64, bool) {
	r := bytes.NewReader(b)
	switch t {
	case dimtype.TypeByte, dimtype.TypeUnsignedByte:
		var v uint8
		if binary.Read(r, binary.LittleEndian, &v) != nil {
			return 0, false
		}
		return uint64(v), true
	case dimtype.TypeShort, dimtype.TypeUnsignedShort:
		var v uint16
		if binary.Read(r, binary.LittleEndian, &v) != nil {
			return 0, false
		}
		return uint64(v), true
	case dimtype.TypeInt, dimtype.TypeUnsignedInt:
		var v uint32
		if binary.Read(r, binary.LittleEndian, &v) != nil {
			return 0, false
		}
		return uint64(v), true
	case dimtype.TypeLong, dimtype.TypeUnsignedLong:
		var v uint64
		if binary.Read(r, binary.LittleEndian, &v) != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}
