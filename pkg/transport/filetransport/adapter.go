// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package filetransport

import (
	"context"

	"github.com/adios-io/adios/pkg/adioserr"
	"github.com/adios-io/adios/pkg/container"
	"github.com/adios-io/adios/pkg/metadata"
)

// RankTransport adapts one rank's view of a Collective to pkg/engine's
// Transport interface, so a File opened by that rank can Close directly
// into the collective rendezvous.
type RankTransport struct {
	Collective *Collective
	Rank       int
	Ctx        context.Context
}

// Publish reports this rank's completed PG to the collective and blocks
// until the whole communicator has rendezvoused and the file has been
// written (or the step aborted/marked partial per Config.OnFailure). A
// caller-signaled partial step is treated as this rank failing to produce a
// usable PG, letting the collective's OnFailure policy decide whether to
// abort the whole step or write it with the partial_step flag set.
func (t RankTransport) Publish(pg container.PG, partial bool, mode metadata.FileMode) error {
	ctx := t.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	var produceErr error
	if partial {
		produceErr = adioserr.Set(adioserr.TransportFailure, "filetransport: rank %d reported a partial step", t.Rank)
	}
	return t.Collective.Submit(ctx, t.Rank, pg, produceErr, mode)
}
