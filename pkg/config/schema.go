// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

// configSchema is the JSON Schema every raw configuration document is
// validated against before decode, mirroring the teacher's
// pkg/metricstore/configSchema.go raw-string-constant approach.
const configSchema = `{
  "type": "object",
  "description": "Configuration for the adios engine, transport selection, and staging transport.",
  "properties": {
    "buffer-mb": {
      "description": "Size in megabytes of the shared byte arena backing every open file's writes.",
      "type": "integer",
      "minimum": 1
    },
    "buffer-when": {
      "description": "When the arena is allocated: 'now', 'before-open', 'after-open', or 'end-of-step'.",
      "type": "string",
      "enum": ["now", "before-open", "after-open", "end-of-step"]
    },
    "overflow-policy": {
      "description": "What happens when a reservation would exceed the arena: 'abort', 'spill-to-disk', or 'drop-oldest-pg'.",
      "type": "string",
      "enum": ["abort", "spill-to-disk", "drop-oldest-pg"]
    },
    "stats-flag": {
      "description": "Whether per-variable statistics folding is enabled by default for newly declared groups.",
      "type": "boolean"
    },
    "histogram-breaks": {
      "description": "Bucket boundaries for the optional histogram reducer.",
      "type": "array",
      "items": { "type": "number" }
    },
    "janitor-interval": {
      "description": "Duration string (e.g. '1m') between background arena/graph maintenance passes.",
      "type": "string"
    },
    "debug-agent": {
      "description": "Start a gops debug agent alongside the janitor scheduler for live inspection.",
      "type": "boolean"
    },
    "transport": {
      "description": "Which transport a file opened against this configuration publishes through: 'file' or 'staging'.",
      "type": "string",
      "enum": ["file", "staging"]
    },
    "file-transport": {
      "description": "Configuration for the rank-0 collective file transport.",
      "type": "object",
      "properties": {
        "path": { "description": "Destination container file path.", "type": "string" },
        "aggregation": {
          "description": "'collective' (every rank writes directly) or 'aggregator' (forward through K aggregator ranks).",
          "type": "string",
          "enum": ["collective", "aggregator"]
        },
        "aggregator-k": { "type": "integer", "minimum": 0 },
        "on-failure": {
          "description": "'abort-step' or 'write-partial'.",
          "type": "string",
          "enum": ["abort-step", "write-partial"]
        },
        "timeout": {
          "description": "Bounds the collective rendezvous (a Go duration string, e.g. '30s'); a rank that does not enter close within this window fails the step with err_collective_timeout. Empty disables the bound.",
          "type": "string"
        }
      },
      "required": ["path"]
    },
    "staging-transport": {
      "description": "Configuration for the staging (in-transit, subscriber fan-out) transport.",
      "type": "object",
      "properties": {
        "cm-host": { "description": "Single staging contact-manager host.", "type": "string" },
        "cm-port": { "type": "integer" },
        "cm-list": {
          "description": "Several contact-manager endpoints as \"host:port\" strings, assigned round-robin per rank.",
          "type": "array",
          "items": { "type": "string" }
        },
        "max-client": {
          "description": "Number of subscribers the registry waits for before publishing.",
          "type": "integer",
          "minimum": 1
        },
        "num-parallel": {
          "description": "Worker pool size for per-variable parallel submission; 0 or 1 means sequential.",
          "type": "integer",
          "minimum": 0
        },
        "reverse-dim": {
          "description": "Publish variable dimensions in column-major order instead of row-major.",
          "type": "boolean"
        },
        "pool-min": { "type": "integer", "minimum": 0 },
        "pool-max": { "type": "integer", "minimum": 0 },
        "linger": { "description": "Duration string an elastic worker idles before retiring.", "type": "string" },
        "subject-prefix": { "type": "string" }
      },
      "required": ["max-client"]
    }
  }
}`
