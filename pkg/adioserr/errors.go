// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package adioserr implements the library's last-error registry.
//
// Public operations never unwind: on failure they record a Code/message pair
// here and return a sentinel to the caller (a negative status, nil pointer,
// or similar, depending on the operation). Callers are expected to consult
// the registry only immediately after a failed call, per the propagation
// rules in the specification.
package adioserr

import (
	"fmt"
	"sync/atomic"
)

// Code identifies a stable error kind.
type Code int32

const (
	NoError Code = iota
	NoMemory
	InvalidFilePointer
	InvalidFileMode
	InvalidGroup
	InvalidVarName
	InvalidVarID
	InvalidDimension
	InvalidData
	DuplicateName
	OutOfBound
	BufferOverflow
	CollectiveTimeout
	TransportFailure
)

var names = map[Code]string{
	NoError:            "err_no_error",
	NoMemory:           "err_no_memory",
	InvalidFilePointer: "err_invalid_file_pointer",
	InvalidFileMode:    "err_invalid_file_mode",
	InvalidGroup:       "err_invalid_group",
	InvalidVarName:     "err_invalid_varname",
	InvalidVarID:       "err_invalid_varid",
	InvalidDimension:   "err_invalid_dimension",
	InvalidData:        "err_invalid_data",
	DuplicateName:      "err_duplicate_name",
	OutOfBound:         "err_out_of_bound",
	BufferOverflow:     "err_buffer_overflow",
	CollectiveTimeout:  "err_collective_timeout",
	TransportFailure:   "err_transport_failure",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("err_unknown(%d)", int32(c))
}

// Recoverable reports whether the caller may retry with corrected inputs,
// per the error-handling design: invalid names/dimensions/bounds are
// recoverable at the call boundary, everything else is fatal to the step
// (or fatal to the process for NoMemory during init).
func (c Code) Recoverable() bool {
	switch c {
	case InvalidVarName, InvalidDimension, OutOfBound:
		return true
	default:
		return false
	}
}

// Error is a (Code, formatted message) pair satisfying the error interface.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New constructs an *Error without touching any registry.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Registry is a process-local (or, if the caller chooses, thread-local)
// last-error slot. The zero value is ready to use and starts at NoError.
//
// Thread-local semantics are not required but are easy to get: a caller
// wanting them simply keeps one Registry per goroutine instead of using the
// process-wide helpers below.
type Registry struct {
	last atomic.Pointer[Error]
}

// Set records a new (code, message) pair as the last error and returns it.
// Set never clears the registry; only an explicit success path calling
// Clear does.
func (r *Registry) Set(code Code, format string, args ...interface{}) *Error {
	e := New(code, format, args...)
	r.last.Store(e)
	return e
}

// Clear resets the registry to err_no_error. Called by explicit success
// paths only; never invoked implicitly by a failing operation.
func (r *Registry) Clear() {
	r.last.Store(nil)
}

// Last returns the most recently recorded error, or nil if the registry is
// clear.
func (r *Registry) Last() *Error {
	return r.last.Load()
}

// process is the process-wide registry instance used by package-level
// helpers. A caller wanting isolated registries (e.g. one per test) should
// construct its own *Registry instead.
var process Registry

// Set records err on the process-wide registry.
func Set(code Code, format string, args ...interface{}) *Error {
	return process.Set(code, format, args...)
}

// Last returns the most recently recorded process-wide error.
func Last() *Error {
	return process.Last()
}

// ClearLast resets the process-wide registry.
func ClearLast() {
	process.Clear()
}
