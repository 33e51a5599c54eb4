// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package staging

import (
	"context"
	"sync"

	"github.com/adios-io/adios/pkg/adioserr"
)

// Contact is one subscriber's registered endpoint: the staging transport's
// modern equivalent of the original ICEE transport's (host, port, stone_id)
// contact record.
type Contact struct {
	Host    string
	Port    int
	StoneID uint32
}

// Registry collects subscriber registrations until exactly maxClient have
// registered, per §4.H: "waits for exactly max_client subscribers to
// register their (host, port, stone_id) contact records".
type Registry struct {
	maxClient int

	mu       sync.Mutex
	contacts []Contact
	ready    chan struct{}
	closed   bool
}

// NewRegistry returns an empty registry expecting maxClient registrations.
func NewRegistry(maxClient int) *Registry {
	return &Registry{maxClient: maxClient, ready: make(chan struct{})}
}

// Register records one subscriber's contact. Once maxClient registrations
// have arrived, Wait unblocks.
func (r *Registry) Register(c Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.contacts) >= r.maxClient {
		return adioserr.Set(adioserr.TransportFailure,
			"staging: registry already has its configured max_client=%d subscribers", r.maxClient)
	}
	r.contacts = append(r.contacts, c)
	if len(r.contacts) == r.maxClient && !r.closed {
		r.closed = true
		close(r.ready)
	}
	return nil
}

// Wait blocks until exactly maxClient subscribers have registered, or ctx
// is done.
func (r *Registry) Wait(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return adioserr.Set(adioserr.TransportFailure,
			"staging: timed out waiting for %d subscribers: %v", r.maxClient, ctx.Err())
	}
}

// Contacts returns the registered subscribers, in registration order.
func (r *Registry) Contacts() []Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Contact, len(r.contacts))
	copy(out, r.contacts)
	return out
}
