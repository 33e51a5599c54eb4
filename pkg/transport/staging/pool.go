// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package staging implements the network staging transport (§4.H): a
// subscriber registry, a per-step fileinfo publisher, and the bounded
// worker pool that fans submissions out concurrently in parallel mode.
//
// Grounded on pkg/nats/client.go for the wire layer and
// pkg/metricstore/walCheckpoint.go's ToCheckpointWAL Keys.NumWorkers
// channel-fan-out for the worker pool shape, generalized to honor
// min/max/linger/cancel per the specification's thread-pool contract.
package staging

import (
	"context"
	"sync"
	"time"

	"github.com/adios-io/adios/pkg/log"
	"github.com/adios-io/adios/pkg/metrics"
)

// Job is one unit of work submitted to a Pool.
type Job func(ctx context.Context) error

// Pool is a bounded FIFO worker pool: min workers are permanent, up to
// max-min additional elastic workers spin up under load and exit after
// sitting idle for linger, per §4.H's thread-pool contract. Cancellation
// points are the job-dequeue wait and the job body itself (via the context
// passed to Job), matching "jobs MUST be written to leave shared state
// consistent on cancel".
type Pool struct {
	min, max int
	linger   time.Duration

	jobs chan Job

	mu   sync.Mutex
	live int

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup

	inflight sync.WaitGroup
}

// NewPool returns a running Pool with min permanent workers already
// started.
func NewPool(min, max int, linger time.Duration) *Pool {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{min: min, max: max, linger: linger, jobs: make(chan Job, max*4), ctx: ctx, cancel: cancel}
	for i := 0; i < min; i++ {
		p.spawn(false)
	}
	return p
}

func (p *Pool) spawn(elastic bool) {
	p.mu.Lock()
	p.live++
	p.mu.Unlock()
	p.workers.Add(1)
	go p.run(elastic)
}

func (p *Pool) run(elastic bool) {
	defer p.workers.Done()
	defer func() {
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
	}()

	var timerC <-chan time.Time
	var timer *time.Timer
	if elastic {
		timer = time.NewTimer(p.linger)
		timerC = timer.C
		defer timer.Stop()
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			metrics.StagingQueueDepth.Set(float64(len(p.jobs)))
			if err := job(p.ctx); err != nil {
				log.Warnf("staging: job failed: %v", err)
			}
			p.inflight.Done()
			if elastic {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(p.linger)
			}
		case <-timerC:
			return
		}
	}
}

// Submit enqueues job, growing the pool with an elastic worker (up to max)
// when the queue already has backlogged work the live workers haven't
// drained yet.
func (p *Pool) Submit(job Job) bool {
	p.inflight.Add(1)

	p.mu.Lock()
	grow := p.live < p.max && len(p.jobs) > 0
	p.mu.Unlock()
	if grow {
		p.spawn(true)
	}

	select {
	case p.jobs <- job:
		metrics.StagingQueueDepth.Set(float64(len(p.jobs)))
		return true
	case <-p.ctx.Done():
		p.inflight.Done()
		return false
	}
}

// Wait blocks until the queue is drained and no worker is mid-job.
func (p *Pool) Wait() {
	p.inflight.Wait()
}

// Destroy cancels active workers, waits for every worker goroutine to
// return, then reclaims the pool. Safe to call once; a job in flight when
// Destroy is called sees its context canceled.
func (p *Pool) Destroy() {
	p.cancel()
	p.workers.Wait()
}
