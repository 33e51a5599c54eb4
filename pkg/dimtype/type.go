// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dimtype implements the scalar type table and the dimension
// expression evaluator: the smallest, most characteristic embedded
// language in the container format, used to size every array variable.
package dimtype

import "fmt"

// Type enumerates the scalar types a Variable may carry.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeUnsignedByte
	TypeUnsignedShort
	TypeUnsignedInt
	TypeUnsignedLong
	TypeFloat
	TypeDouble
	TypeLongDouble
	TypeString
	TypeComplex
	TypeDoubleComplex
)

var staticSizes = map[Type]int{
	TypeByte:          1,
	TypeShort:         2,
	TypeInt:           4,
	TypeLong:          8,
	TypeUnsignedByte:  1,
	TypeUnsignedShort: 2,
	TypeUnsignedInt:   4,
	TypeUnsignedLong:  8,
	TypeFloat:         4,
	TypeDouble:        8,
	TypeLongDouble:    16,
	TypeComplex:       8,
	TypeDoubleComplex: 16,
}

var names = map[Type]string{
	TypeByte:          "byte",
	TypeShort:         "short",
	TypeInt:           "int",
	TypeLong:          "long",
	TypeUnsignedByte:  "unsigned_byte",
	TypeUnsignedShort: "unsigned_short",
	TypeUnsignedInt:   "unsigned_int",
	TypeUnsignedLong:  "unsigned_long",
	TypeFloat:         "float",
	TypeDouble:        "double",
	TypeLongDouble:    "long_double",
	TypeString:        "string",
	TypeComplex:       "complex",
	TypeDoubleComplex: "double_complex",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// NumComponents returns how many parallel statistics components a value of
// this type carries: 3 (magnitude, real, imag) for the complex types, 1 for
// everything else.
func (t Type) NumComponents() int {
	if t == TypeComplex || t == TypeDoubleComplex {
		return 3
	}
	return 1
}

// Size returns the byte size of a value of type t. Strings are variable
// length: value must be a non-nil *string and the returned size is
// len(*value)+1 (length + NUL), matching the container format's string
// encoding. All other types are static and value is ignored.
func Size(t Type, value *string) (int, error) {
	if t == TypeString {
		if value == nil {
			return 0, fmt.Errorf("dimtype: string type requires a value to measure its length")
		}
		return len(*value) + 1, nil
	}
	sz, ok := staticSizes[t]
	if !ok {
		return 0, fmt.Errorf("dimtype: unknown type %v", t)
	}
	return sz, nil
}
