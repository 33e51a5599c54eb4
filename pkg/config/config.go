// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config is the non-core stand-in for spec.md §1's "XML
// configuration loader" external collaborator: it populates engine
// defaults, transport selection, and staging transport parameters from a
// JSON document, the way the XML loader would populate the metadata model.
// It does not implement XML parsing itself (out of scope per spec.md §1).
//
// Grounded on the teacher's pkg/metricstore/config.go (a Keys-style global
// config struct with embedded sub-structs) and internal/config/validate.go
// (compile-and-validate a raw JSON Schema string with
// github.com/santhosh-tekuri/jsonschema/v5 before json.Decoder.Decode).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/adios-io/adios/pkg/adioserr"
	"github.com/adios-io/adios/pkg/arena"
	"github.com/adios-io/adios/pkg/engine"
	"github.com/adios-io/adios/pkg/stats"
	"github.com/adios-io/adios/pkg/transport/filetransport"
	"github.com/adios-io/adios/pkg/transport/staging"
)

// Transport selects which pkg/transport implementation a file opened
// against this configuration publishes through.
type Transport string

const (
	TransportFile    Transport = "file"
	TransportStaging Transport = "staging"
)

// FileTransportConfig mirrors pkg/transport/filetransport.Config's JSON
// surface.
type FileTransportConfig struct {
	Path        string `json:"path"`
	Aggregation string `json:"aggregation"`
	AggregatorK int    `json:"aggregator-k"`
	OnFailure   string `json:"on-failure"`
	// Timeout bounds §5's collective rendezvous; parsed as a
	// time.Duration (e.g. "30s"). Empty disables the bound.
	Timeout string `json:"timeout"`
}

// Resolve converts the JSON-facing fields into filetransport.Config's typed
// enums, defaulting to AggregationCollective / PolicyAbortStep.
func (c FileTransportConfig) Resolve() (filetransport.Config, error) {
	out := filetransport.Config{Path: c.Path, AggregatorK: c.AggregatorK}
	switch c.Aggregation {
	case "", "collective":
		out.Aggregation = filetransport.AggregationCollective
	case "aggregator":
		out.Aggregation = filetransport.AggregationAggregator
	default:
		return out, adioserr.Set(adioserr.InvalidData, "config: unknown file-transport.aggregation %q", c.Aggregation)
	}
	switch c.OnFailure {
	case "", "abort-step":
		out.OnFailure = filetransport.PolicyAbortStep
	case "write-partial":
		out.OnFailure = filetransport.PolicyWritePartial
	default:
		return out, adioserr.Set(adioserr.InvalidData, "config: unknown file-transport.on-failure %q", c.OnFailure)
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return out, adioserr.Set(adioserr.InvalidData, "config: file-transport.timeout %q: %v", c.Timeout, err)
		}
		out.Timeout = d
	}
	return out, nil
}

// StagingTransportConfig mirrors pkg/transport/staging.Config's JSON
// surface.
type StagingTransportConfig struct {
	CmHost        string   `json:"cm-host"`
	CmPort        int      `json:"cm-port"`
	CmList        []string `json:"cm-list"`
	MaxClient     int      `json:"max-client"`
	NumParallel   int      `json:"num-parallel"`
	ReverseDim    bool     `json:"reverse-dim"`
	PoolMin       int      `json:"pool-min"`
	PoolMax       int      `json:"pool-max"`
	Linger        string   `json:"linger"`
	SubjectPrefix string   `json:"subject-prefix"`
}

// Resolve converts the JSON-facing fields into staging.Config, parsing
// Linger as a time.Duration.
func (c StagingTransportConfig) Resolve() (staging.Config, error) {
	out := staging.Config{
		CmHost:        c.CmHost,
		CmPort:        c.CmPort,
		CmList:        c.CmList,
		MaxClient:     c.MaxClient,
		NumParallel:   c.NumParallel,
		ReverseDim:    c.ReverseDim,
		PoolMin:       c.PoolMin,
		PoolMax:       c.PoolMax,
		SubjectPrefix: c.SubjectPrefix,
	}
	if c.Linger != "" {
		d, err := time.ParseDuration(c.Linger)
		if err != nil {
			return out, adioserr.Set(adioserr.InvalidData, "config: staging-transport.linger %q: %v", c.Linger, err)
		}
		out.Linger = d
	}
	return out, nil
}

// Config is the global configuration document: engine buffer/statistics
// defaults plus the selected transport's parameters. Loaded once at process
// startup from a JSON document (e.g. the file the adioswrite CLI's -config
// flag names) and decoded into Keys.
type Config struct {
	BufferMB        int      `json:"buffer-mb"`
	BufferWhen      string   `json:"buffer-when"`
	OverflowPolicy  string    `json:"overflow-policy"`
	StatsFlag       bool      `json:"stats-flag"`
	HistogramBreaks []float64 `json:"histogram-breaks"`
	JanitorInterval string    `json:"janitor-interval"`
	DebugAgent      bool      `json:"debug-agent"`

	Transport        Transport              `json:"transport"`
	FileTransport    FileTransportConfig    `json:"file-transport"`
	StagingTransport StagingTransportConfig `json:"staging-transport"`
}

// Keys is the global configuration instance, initialized with defaults and
// then overwritten by Load, mirroring the teacher's package-global Keys
// pattern.
var Keys = Config{
	BufferMB:       64,
	BufferWhen:     "now",
	OverflowPolicy: "abort",
}

// ResolveBufferWhen parses BufferWhen into arena.When, defaulting to
// arena.WhenNow.
func (c Config) ResolveBufferWhen() (arena.When, error) {
	switch c.BufferWhen {
	case "", "now":
		return arena.WhenNow, nil
	case "before-open":
		return arena.WhenBeforeOpen, nil
	case "after-open":
		return arena.WhenAfterOpen, nil
	case "end-of-step":
		return arena.WhenEndOfStep, nil
	default:
		return arena.WhenNow, adioserr.Set(adioserr.InvalidData, "config: unknown buffer-when %q", c.BufferWhen)
	}
}

// ResolveOverflowPolicy parses OverflowPolicy into arena.OverflowPolicy,
// defaulting to arena.PolicyAbort.
func (c Config) ResolveOverflowPolicy() (arena.OverflowPolicy, error) {
	switch c.OverflowPolicy {
	case "", "abort":
		return arena.PolicyAbort, nil
	case "spill-to-disk":
		return arena.PolicySpillToDisk, nil
	case "drop-oldest-pg":
		return arena.PolicyDropOldestPG, nil
	default:
		return arena.PolicyAbort, adioserr.Set(adioserr.InvalidData, "config: unknown overflow-policy %q", c.OverflowPolicy)
	}
}

// ResolveJanitorInterval parses JanitorInterval as a time.Duration, or
// returns 0 if unset (the caller then applies its own default).
func (c Config) ResolveJanitorInterval() (time.Duration, error) {
	if c.JanitorInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.JanitorInterval)
	if err != nil {
		return 0, adioserr.Set(adioserr.InvalidData, "config: janitor-interval %q: %v", c.JanitorInterval, err)
	}
	return d, nil
}

// Validate compiles configSchema and checks instance against it, mirroring
// internal/config.Validate(schema, instance) — adapted to return an error
// instead of calling cclog.Fatal, since this is a library function rather
// than a long-running daemon's startup path.
func Validate(instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("adios-config.json", configSchema)
	if err != nil {
		return adioserr.Set(adioserr.InvalidData, "config: schema does not compile: %v", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return adioserr.Set(adioserr.InvalidData, "config: invalid JSON: %v", err)
	}

	if err := sch.Validate(v); err != nil {
		return adioserr.Set(adioserr.InvalidData, "config: %v", err)
	}
	return nil
}

// Load validates rawConfig against configSchema, decodes it over Keys
// (disallowing unknown fields, as the teacher's Init does), and returns the
// result. Keys is left untouched if either step fails.
func Load(rawConfig json.RawMessage) (Config, error) {
	if rawConfig == nil {
		return Keys, nil
	}
	if err := Validate(rawConfig); err != nil {
		return Config{}, err
	}

	next := Keys
	dec := json.NewDecoder(bytes.NewReader(rawConfig))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		return Config{}, adioserr.Set(adioserr.InvalidData, "config: decode: %v", err)
	}
	Keys = next
	return Keys, nil
}

// ResolveDefaultStats builds the default reducer bitmap new groups get when
// they don't override it explicitly: min/max/sum/sum-of-squares/count when
// stats-flag is set, plus the histogram reducer when histogram-breaks is
// non-empty.
func (c Config) ResolveDefaultStats() stats.Bitmap {
	if !c.StatsFlag {
		return 0
	}
	bm := stats.Bitmap(stats.KindMin | stats.KindMax | stats.KindSum | stats.KindSumSq | stats.KindCount)
	if len(c.HistogramBreaks) > 0 {
		bm |= stats.Bitmap(stats.KindHist)
	}
	return bm
}

// ResolveEngine assembles an engine.Config from c, the form pkg/engine.Init
// expects.
func (c Config) ResolveEngine() (engine.Config, error) {
	when, err := c.ResolveBufferWhen()
	if err != nil {
		return engine.Config{}, err
	}
	policy, err := c.ResolveOverflowPolicy()
	if err != nil {
		return engine.Config{}, err
	}
	janitor, err := c.ResolveJanitorInterval()
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		BufferMB:        c.BufferMB,
		BufferWhen:      when,
		OverflowPolicy:  policy,
		DefaultStats:    c.ResolveDefaultStats(),
		HistogramBreaks: c.HistogramBreaks,
		JanitorInterval: janitor,
		DebugAgent:      c.DebugAgent,
	}, nil
}

func (c Config) String() string {
	return fmt.Sprintf("Config{BufferMB:%d Transport:%s}", c.BufferMB, c.Transport)
}
