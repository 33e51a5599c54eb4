// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

import "sync"

// Transform is the pre-write hook applied to a variable's encoded value
// before it is stored in a PG's CharValue characteristic, selected
// per-variable by metadata.Variable.Transform. Per spec.md §1's Non-goals
// ("no position on whether compression plugins exist"), this package does
// not ship a compression transform — only the hook and the two
// implementations needed to exercise it.
type Transform interface {
	Name() string
	Apply(data []byte) ([]byte, error)
}

// Identity is the default Transform: every variable not naming a
// registered transform gets this one, and it passes data through
// unchanged.
type Identity struct{}

func (Identity) Name() string                      { return "" }
func (Identity) Apply(data []byte) ([]byte, error) { return data, nil }

// Counting is a Transform for tests: it passes data through unchanged
// while accumulating the number of bytes it has seen in Bytes, so a test
// can confirm the hook actually ran on a given variable rather than just
// trusting Lookup returned it.
type Counting struct {
	Bytes *int64
}

func (Counting) Name() string { return "counting" }

func (c Counting) Apply(data []byte) ([]byte, error) {
	if c.Bytes != nil {
		*c.Bytes += int64(len(data))
	}
	return data, nil
}

var (
	transformsMu sync.Mutex
	transforms   = map[string]Transform{}
)

// RegisterTransform makes t reachable by name from Lookup, e.g. a test
// registering its own Counting instance before writing so it can inspect
// Bytes afterwards.
func RegisterTransform(name string, t Transform) {
	transformsMu.Lock()
	defer transformsMu.Unlock()
	transforms[name] = t
}

// Lookup resolves a metadata.Variable.Transform name to a Transform,
// defaulting to Identity for the empty string or any name nobody has
// registered.
func Lookup(name string) Transform {
	if name == "" {
		return Identity{}
	}
	transformsMu.Lock()
	defer transformsMu.Unlock()
	if t, ok := transforms[name]; ok {
		return t
	}
	return Identity{}
}
