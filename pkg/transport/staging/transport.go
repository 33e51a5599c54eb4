// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package staging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/adios-io/adios/pkg/adioserr"
	"github.com/adios-io/adios/pkg/container"
	"github.com/adios-io/adios/pkg/log"
	"github.com/adios-io/adios/pkg/metadata"
	"github.com/adios-io/adios/pkg/metrics"
)

// Publisher sends one message to one subject. NATSPublisher is the
// production implementation (grounded on pkg/nats/client.go); tests inject
// a fake.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher wraps a NATS connection, mirroring pkg/nats/client.go's
// Client.Publish.
type NATSPublisher struct {
	Conn *nats.Conn
}

// Publish sends data on subject over the wrapped NATS connection.
func (p NATSPublisher) Publish(subject string, data []byte) error {
	if err := p.Conn.Publish(subject, data); err != nil {
		return adioserr.Set(adioserr.TransportFailure, "staging: NATS publish to %q failed: %v", subject, err)
	}
	return nil
}

// Config configures one Transport.
type Config struct {
	// CmHost/CmPort configure a single staging endpoint; CmList configures
	// several as "host:port,host:port,...". Ranks are assigned round-robin
	// across CmList when it is set.
	CmHost string
	CmPort int
	CmList []string

	MaxClient   int
	NumParallel int
	ReverseDim  bool

	// PoolMin/PoolMax/Linger configure the worker pool used in parallel
	// mode (NumParallel > 1). Defaults: min=1, max=NumParallel, linger=5s.
	PoolMin int
	PoolMax int
	Linger  time.Duration

	SubjectPrefix string // default "adios.staging"
}

func (c Config) subject() string {
	if c.SubjectPrefix != "" {
		return c.SubjectPrefix
	}
	return "adios.staging"
}

func (c Config) endpoints() []string {
	if len(c.CmList) > 0 {
		return c.CmList
	}
	return []string{fmt.Sprintf("%s:%d", c.CmHost, c.CmPort)}
}

// Transport implements pkg/engine.Transport: on Publish it builds one or
// more FileInfo messages from the PG and fans them out to every registered
// subscriber, sequentially or through a worker pool in parallel mode, per
// §4.H.
type Transport struct {
	cfg      Config
	pub      Publisher
	registry *Registry
	pool     *Pool

	rank, commSize uint32
	fname          string

	mu       sync.Mutex
	totalVar uint32 // communicator-wide variable count, reduced externally via SetCommTotalVars
}

// NewTransport returns a Transport for one rank of a comm_size
// communicator, publishing through pub once registry has seen maxClient
// subscribers register. rank is assigned an endpoint round-robin across
// cfg's configured cm_list.
func NewTransport(cfg Config, pub Publisher, registry *Registry, fname string, rank, commSize uint32) *Transport {
	t := &Transport{cfg: cfg, pub: pub, registry: registry, fname: fname, rank: rank, commSize: commSize}
	if cfg.NumParallel > 1 {
		min, max, linger := cfg.PoolMin, cfg.PoolMax, cfg.Linger
		if min <= 0 {
			min = 1
		}
		if max <= 0 {
			max = cfg.NumParallel
		}
		if linger <= 0 {
			linger = 5 * time.Second
		}
		t.pool = NewPool(min, max, linger)
	}
	return t
}

// Endpoint returns the cm_list (or cm_host/cm_port) entry this rank
// publishes through, assigned round-robin across the configured list.
func (t *Transport) Endpoint() string {
	eps := t.cfg.endpoints()
	return eps[int(t.rank)%len(eps)]
}

// SetCommTotalVars records the communicator-wide variable count (a
// reduce-sum across every rank's written-var count), used as NChunks in
// parallel mode so subscribers can tell when a full step has arrived.
func (t *Transport) SetCommTotalVars(n uint32) {
	t.mu.Lock()
	t.totalVar = n
	t.mu.Unlock()
}

// Publish builds this rank's FileInfo message(s) from pg and fans them out
// to every subscriber in registry, per §4.H's per-step submission rules.
// mode is unused: staging has no on-disk file to append to, every step is
// simply published to the current subscriber set.
func (t *Transport) Publish(pg container.PG, partial bool, mode metadata.FileMode) error {
	if t.registry != nil {
		if err := t.registry.Wait(context.Background()); err != nil {
			return err
		}
	}

	if t.cfg.NumParallel > 1 {
		return t.publishParallel(pg)
	}
	return t.publishSequential(pg)
}

func (t *Transport) publishSequential(pg container.PG) error {
	vars := make([]VarInfo, len(pg.Vars))
	for i, v := range pg.Vars {
		vars[i] = varInfoFromRecord(v, t.cfg.ReverseDim)
	}
	fi := FileInfo{
		FName:    t.fname,
		Timestep: pg.Header.TimeIndex,
		CommRank: t.rank,
		CommSize: t.commSize,
		NChunks:  1,
		Vars:     vars,
	}
	return t.broadcast(fi)
}

// publishParallel splits the written-var log into one chunk per variable
// and submits them concurrently through the worker pool, per §4.H: "split
// the written-var log into N chunks of one variable each and submit them
// concurrently through a worker pool of size num_parallel".
func (t *Transport) publishParallel(pg container.PG) error {
	t.mu.Lock()
	nchunks := t.totalVar
	t.mu.Unlock()
	if nchunks == 0 {
		nchunks = uint32(len(pg.Vars))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(pg.Vars))
	for i, v := range pg.Vars {
		i, v := i, v
		wg.Add(1)
		accepted := t.pool.Submit(func(ctx context.Context) error {
			defer wg.Done()
			fi := FileInfo{
				FName:    t.fname,
				Timestep: pg.Header.TimeIndex,
				CommRank: t.rank,
				CommSize: t.commSize,
				NChunks:  nchunks,
				Vars:     []VarInfo{varInfoFromRecord(v, t.cfg.ReverseDim)},
			}
			err := t.broadcast(fi)
			errs[i] = err
			return err
		})
		if !accepted {
			wg.Done()
			errs[i] = adioserr.Set(adioserr.TransportFailure, "staging: pool rejected chunk for variable %q (shutting down)", v.Name)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// broadcast publishes fi to every registered subscriber's subject. Ordering
// within a step across chunks is unspecified; subscribers reassemble by
// (timestep, variable name).
func (t *Transport) broadcast(fi FileInfo) error {
	data, err := fi.Marshal()
	if err != nil {
		return adioserr.Set(adioserr.TransportFailure, "staging: marshal fileinfo: %v", err)
	}

	var contacts []Contact
	if t.registry != nil {
		contacts = t.registry.Contacts()
	}
	if len(contacts) == 0 {
		// No registry configured (e.g. direct cm_host/cm_port): publish on
		// the shared subject once; subscribers reach it via a queue group.
		if err := t.pub.Publish(t.cfg.subject(), data); err != nil {
			metrics.StagingPublishFailures.Inc()
			return err
		}
		metrics.PGsWritten.WithLabelValues("staging").Inc()
		return nil
	}

	for _, c := range contacts {
		subject := fmt.Sprintf("%s.%s", t.cfg.subject(), strings.ReplaceAll(fmt.Sprintf("%s-%d", c.Host, c.StoneID), ".", "_"))
		if err := t.pub.Publish(subject, data); err != nil {
			metrics.StagingPublishFailures.Inc()
			log.Warnf("staging: publish to subscriber %s:%d (stone %d) failed: %v", c.Host, c.Port, c.StoneID, err)
			return err
		}
	}
	metrics.PGsWritten.WithLabelValues("staging").Inc()
	return nil
}

// Close drains and tears down the worker pool, if one was started for
// parallel mode.
func (t *Transport) Close() {
	if t.pool == nil {
		return
	}
	t.pool.Wait()
	t.pool.Destroy()
}
