// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"github.com/adios-io/adios/pkg/container"
	"github.com/adios-io/adios/pkg/metadata"
)

// Transport is the sink a File hands its completed Process Group to at
// close (§4.F "close ... hand the PG buffer to each attached method").
// pkg/transport/filetransport and pkg/transport/staging implement it.
type Transport interface {
	// Publish takes ownership of pg (and, transitively, of any array
	// payloads it borrows from the caller's buffers) and delivers it:
	// by writing/appending it to a container file, or by shipping it to
	// staging subscribers. partial marks a step written despite a rank
	// failing to contribute, per §4.G's partial_step policy. mode is the
	// File's open mode; a file transport honors metadata.ModeAppend by
	// preserving PGs already on disk instead of overwriting them (spec.md:92).
	Publish(pg container.PG, partial bool, mode metadata.FileMode) error
}

// NullTransport discards every Process Group handed to it. Matches
// "if the only method is the null sink, the call is a no-op" (spec.md
// §3 "Method binding"), useful for tests exercising only the engine's
// bookkeeping.
type NullTransport struct{}

func (NullTransport) Publish(container.PG, bool, metadata.FileMode) error { return nil }
