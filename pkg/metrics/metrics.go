// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes the library's process-wide state object
// (the arena, the open-file set, the transports) through
// github.com/prometheus/client_golang, the same dependency the teacher uses
// as a metricdata backend (internal/metricdata/prometheus.go) — here wired
// the other way around, as an exposition registry rather than a query
// client, since a write-path library has no equivalent of its own to query.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the dedicated registry every metric below is bound to, rather
// than prometheus's global DefaultRegisterer — so a process embedding this
// library as one of several components doesn't collide on metric names.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// ArenaBytesReserved is the current reservation frontier of the shared
	// byte arena, in bytes.
	ArenaBytesReserved = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "adios",
		Subsystem: "arena",
		Name:      "bytes_reserved",
		Help:      "Bytes reserved from the shared write-path arena since the last Release.",
	})

	// ArenaOverflows counts Reserve calls that triggered the arena's
	// configured overflow policy.
	ArenaOverflows = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "adios",
		Subsystem: "arena",
		Name:      "overflows_total",
		Help:      "Reserve calls that exceeded capacity and triggered the overflow policy.",
	})

	// PGsWritten counts Process Groups committed to a container file.
	PGsWritten = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adios",
		Subsystem: "transport",
		Name:      "pgs_written_total",
		Help:      "Process Groups committed to a container file, by transport.",
	}, []string{"transport"})

	// StagingQueueDepth is the staging transport worker pool's current
	// in-flight job count.
	StagingQueueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "adios",
		Subsystem: "staging",
		Name:      "queue_depth",
		Help:      "In-flight publish jobs queued in the staging transport's worker pool.",
	})

	// StagingPublishFailures counts failed Publisher.Publish calls.
	StagingPublishFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "adios",
		Subsystem: "staging",
		Name:      "publish_failures_total",
		Help:      "Publisher.Publish calls that returned an error.",
	})
)

// Handler returns an http.Handler serving Registry in the Prometheus
// exposition format, for a caller to mount at e.g. "/metrics".
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
