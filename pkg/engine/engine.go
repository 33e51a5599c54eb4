// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package engine implements the write pipeline: the per-handle state
// machine open→group_size→write*→close (§4.F) plus the process-wide
// lifecycle (init/init_noxml/finalize) that owns the shared metadata graph
// and byte arena every File draws from.
//
// Grounded on the teacher's pkg/metricstore/metricstore.go: a sync.Once
// singleton, a context.CancelFunc stashed for Shutdown, and background
// maintenance goroutines started at Init. This package replaces the
// teacher's bespoke ticker loop with github.com/go-co-op/gocron/v2, and its
// in-memory time-series tree with pkg/metadata's group/variable graph.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/adios-io/adios/pkg/adioserr"
	"github.com/adios-io/adios/pkg/arena"
	"github.com/adios-io/adios/pkg/log"
	"github.com/adios-io/adios/pkg/metadata"
	"github.com/adios-io/adios/pkg/runtimeenv"
	"github.com/adios-io/adios/pkg/stats"
)

// Config configures the engine's buffer arena and default statistics
// collection. It stands in for the XML configuration loader's effect on
// engine defaults per SPEC_FULL.md §5 ("Configuration").
type Config struct {
	BufferMB        int
	BufferWhen      arena.When
	OverflowPolicy  arena.OverflowPolicy
	DefaultStats    stats.Bitmap
	HistogramBreaks []float64
	JanitorInterval time.Duration

	// DebugAgent starts a gops agent alongside the janitor scheduler, for
	// long-running host processes (a staging daemon, a batch job embedding
	// this engine for its whole lifetime) that want live inspection.
	DebugAgent bool
}

// Engine is the process-wide write-pipeline state: one shared metadata
// graph, one shared byte arena, and the set of currently open handles.
type Engine struct {
	cfg   Config
	graph *metadata.Graph
	arena *arena.Arena

	scheduler gocron.Scheduler

	mu    sync.Mutex
	files map[uuid.UUID]*File
}

var (
	singleton  sync.Once
	instance   *Engine
	initErr    error
	shutdownFn context.CancelFunc
)

// Init initializes the process-wide engine singleton exactly once. Must be
// called before Open. Subsequent calls are no-ops (the singleton pattern
// mirrors the teacher's InitMetrics: idempotent, first caller wins).
func Init(cfg Config) error {
	singleton.Do(func() {
		if cfg.JanitorInterval <= 0 {
			cfg.JanitorInterval = time.Minute
		}

		e := &Engine{
			cfg:   cfg,
			graph: metadata.NewGraph(),
			arena: arena.New(cfg.OverflowPolicy),
			files: make(map[uuid.UUID]*File),
		}
		e.arena.Allocate(cfg.BufferMB, cfg.BufferWhen)

		sched, err := gocron.NewScheduler()
		if err != nil {
			initErr = err
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		shutdownFn = cancel
		_, err = sched.NewJob(
			gocron.DurationJob(cfg.JanitorInterval),
			gocron.NewTask(func() { e.janitor(ctx) }),
		)
		if err != nil {
			initErr = err
			return
		}
		sched.Start()
		e.scheduler = sched
		instance = e

		if cfg.DebugAgent {
			if err := runtimeenv.StartDebugAgent(); err != nil {
				log.Warnf("engine: debug agent not started: %v", err)
			}
		}
		runtimeenv.SystemdNotify(true, "engine initialized")
		log.Infof("engine: initialized (buffer=%dMB, policy=%v)", cfg.BufferMB, cfg.OverflowPolicy)
	})
	return initErr
}

// InitNoXML is an alias for Init. The original ADIOS API distinguishes
// adios_init (parses an XML config file) from adios_init_noxml (caller
// populates the metadata graph programmatically); since the XML loader is
// out of scope here (spec.md §1), every Init in this package already
// behaves like init_noxml. Kept for API-surface parity.
func InitNoXML(cfg Config) error { return Init(cfg) }

// GetEngine returns the process-wide singleton. Calls log.Fatal if Init was
// never called, matching the teacher's GetMemoryStore contract.
func GetEngine() *Engine {
	if instance == nil {
		log.Fatal("engine: GetEngine called before Init")
	}
	return instance
}

// Graph returns the shared metadata graph every group is declared in.
func (e *Engine) Graph() *metadata.Graph { return e.graph }

// Arena returns the shared byte arena every open File reserves from.
func (e *Engine) Arena() *arena.Arena { return e.arena }

func (e *Engine) trackOpen(f *File) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[f.ID] = f
}

func (e *Engine) untrackOpen(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.files, id)
}

// OpenCount reports how many handles are currently open, for diagnostics
// and tests.
func (e *Engine) OpenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.files)
}

func (e *Engine) janitor(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	default:
	}
	log.Debugf("engine: janitor tick (arena capacity=%d, spilled files=%d, open handles=%d)",
		e.arena.Capacity(), len(e.arena.SpilledFiles()), e.OpenCount())
}

// Shutdown stops the background janitor. Safe to call even if Init was
// never called. Open handles are not implicitly closed: per §4.F, close is
// the caller's responsibility.
func Shutdown() error {
	if instance == nil {
		return nil
	}
	if shutdownFn != nil {
		shutdownFn()
	}
	if instance.cfg.DebugAgent {
		runtimeenv.StopDebugAgent()
	}
	runtimeenv.SystemdNotify(false, "engine shut down")
	if instance.scheduler == nil {
		return nil
	}
	if err := instance.scheduler.Shutdown(); err != nil {
		return adioserr.Set(adioserr.TransportFailure, "engine: scheduler shutdown failed: %v", err)
	}
	return nil
}

// Finalize is an alias for Shutdown, matching the original API's
// adios_finalize.
func Finalize() error { return Shutdown() }
