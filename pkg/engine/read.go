// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"io"
	"reflect"

	"github.com/adios-io/adios/pkg/adioserr"
	"github.com/adios-io/adios/pkg/container"
)

// ReadFile is a read-only session opened against a container previously
// written through this package, resolving bounded reads by variable name
// per spec.md §4.F's `read(fd, name, buf, buf_bytes) -> status`. Unlike
// container.ReadFile (a structural whole-file decode), ReadFile's Read
// method is the by-name, caller-buffer query spec.md's read operation
// describes.
type ReadFile struct {
	pgs []container.PG
}

// OpenRead decodes r's container structure (PGs, indexes, minifooter) and
// returns a session ready for per-variable reads.
func OpenRead(r io.ReadSeeker) (*ReadFile, error) {
	pgs, _, _, _, _, err := container.ReadFile(r)
	if err != nil {
		return nil, adioserr.Set(adioserr.InvalidData, "read: %v", err)
	}
	return &ReadFile{pgs: pgs}, nil
}

// Read resolves name to its most recently written value and copies it into
// buf, returning the number of elements copied (1 for a scalar). buf must
// be a pointer to a Go value shaped like the one that was written: a
// pointer to a scalar for a scalar variable, or a pointer to a slice for an
// array variable — only as many elements as buf's existing slice length
// allows are copied, mirroring the caller-bounded buf_bytes the spec names.
func (rf *ReadFile) Read(name string, buf interface{}) (int, error) {
	rec, ok := container.FindVar(rf.pgs, name)
	if !ok {
		return 0, adioserr.Set(adioserr.InvalidVarName, "read: unknown variable %q", name)
	}
	value, err := container.DecodeValue(rec)
	if err != nil {
		return 0, adioserr.Set(adioserr.InvalidData, "read %q: %v", name, err)
	}
	n, err := copyInto(buf, value)
	if err != nil {
		return 0, adioserr.Set(adioserr.InvalidData, "read %q: %v", name, err)
	}
	return n, nil
}

// copyInto copies value into *buf via reflection: element-wise (bounded by
// buf's existing slice length) when both are slices, or a single direct
// assignment when both are scalars.
func copyInto(buf interface{}, value interface{}) (int, error) {
	bufVal := reflect.ValueOf(buf)
	if bufVal.Kind() != reflect.Ptr || bufVal.IsNil() {
		return 0, fmt.Errorf("read buffer must be a non-nil pointer, got %T", buf)
	}
	elem := bufVal.Elem()
	valVal := reflect.ValueOf(value)

	if elem.Kind() == reflect.Slice && valVal.Kind() == reflect.Slice {
		n := elem.Len()
		if valVal.Len() < n {
			n = valVal.Len()
		}
		reflect.Copy(elem.Slice(0, n), valVal.Slice(0, n))
		return n, nil
	}
	if elem.Kind() != reflect.Slice && valVal.Kind() != reflect.Slice {
		if !valVal.Type().ConvertibleTo(elem.Type()) {
			return 0, fmt.Errorf("cannot read a value of type %v into a buffer of type %v", valVal.Type(), elem.Type())
		}
		elem.Set(valVal.Convert(elem.Type()))
		return 1, nil
	}
	return 0, fmt.Errorf("read buffer shape does not match the recorded value (value slice=%v, buf slice=%v)",
		valVal.Kind() == reflect.Slice, elem.Kind() == reflect.Slice)
}
