// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command adioswrite is a minimal single-rank writer: it loads engine
// configuration from an optional JSON file, declares a group with a scalar
// n and a dependent array data[n], writes one step, and closes into a file
// transport collective of size one.
//
// Grounded on cmd/cc-backend/main.go's flag+JSON-config-file startup shape,
// adapted from an HTTP daemon's lifetime to a single write-then-exit run.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/adios-io/adios/pkg/config"
	"github.com/adios-io/adios/pkg/dimtype"
	"github.com/adios-io/adios/pkg/engine"
	"github.com/adios-io/adios/pkg/metadata"
	"github.com/adios-io/adios/pkg/transport/filetransport"
)

func main() {
	var configPath, outPath string
	var n int

	flag.StringVar(&configPath, "config", "", "path to a JSON engine configuration file (optional)")
	flag.StringVar(&outPath, "out", "", "path to the container file to write")
	flag.IntVar(&n, "n", 16, "length of the demo array variable")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "adioswrite: -out <path> is required")
		os.Exit(2)
	}

	if err := run(configPath, outPath, n); err != nil {
		fmt.Fprintf(os.Stderr, "adioswrite: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, outPath string, n int) error {
	var raw json.RawMessage
	if configPath != "" {
		b, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		raw = b
	}

	cfg, err := config.Load(raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	engineCfg, err := cfg.ResolveEngine()
	if err != nil {
		return fmt.Errorf("resolve engine config: %w", err)
	}
	if err := engine.Init(engineCfg); err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	defer engine.Shutdown()

	g, err := engine.GetEngine().Graph().DeclareGroup("adioswrite", "", engineCfg.DefaultStats != 0)
	if err != nil {
		return fmt.Errorf("declare group: %w", err)
	}
	nVar, err := g.DefineVar("n", "", dimtype.TypeInt, nil, nil, nil, "")
	if err != nil {
		return fmt.Errorf("define n: %w", err)
	}
	if _, err := g.DefineVar("data", "", dimtype.TypeDouble,
		[]dimtype.Expr{dimtype.VarRef(nVar.ID)}, nil, nil, ""); err != nil {
		return fmt.Errorf("define data: %w", err)
	}

	ftCfg, err := cfg.FileTransport.Resolve()
	if err != nil {
		return fmt.Errorf("resolve file transport config: %w", err)
	}
	ftCfg.Path = outPath
	collective := filetransport.New(ftCfg, 1)
	transport := filetransport.RankTransport{Collective: collective, Rank: 0}

	f, err := engine.Open(g, metadata.ModeWrite, 0, transport)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if _, err := f.GroupSize(4 + n*8); err != nil {
		return fmt.Errorf("group_size: %w", err)
	}
	if err := f.Write("", "n", int32(n)); err != nil {
		return fmt.Errorf("write n: %w", err)
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i)
	}
	if err := f.Write("", "data", data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	if err := f.Close(false); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	fmt.Printf("adioswrite: wrote %s (n=%d)\n", outPath, n)
	return nil
}
