// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command adiosinfo dumps a container file's variable/attribute index and
// Process Group layout, the read-side counterpart to the write pipeline
// pkg/engine implements.
//
// Grounded on tools/archive-migration/main.go's flag-based, single-purpose
// CLI shape: parse flags, open one input, iterate, print.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/adios-io/adios/pkg/container"
)

func main() {
	var path string
	var showVars, showAttrs bool

	flag.StringVar(&path, "f", "", "path to a container file")
	flag.BoolVar(&showVars, "vars", true, "list the merged variable index")
	flag.BoolVar(&showAttrs, "attrs", false, "list the merged attribute index")
	flag.Parse()

	if path == "" {
		fmt.Fprintln(os.Stderr, "adiosinfo: -f <path> is required")
		os.Exit(2)
	}

	if err := run(path, showVars, showAttrs); err != nil {
		fmt.Fprintf(os.Stderr, "adiosinfo: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, showVars, showAttrs bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pgs, footer, varIndex, attrIndex, pgIndex, err := container.ReadFile(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	fmt.Printf("%s: %d process group(s), partial_step=%v, format version %d\n",
		path, len(pgs), footer.PartialStep(), footer.Version&0xFFFFFF)

	fmt.Println("process groups (time_index, process_id, byte_offset, length):")
	for _, e := range pgIndex {
		fmt.Printf("  t=%d rank=%d offset=%d length=%d\n", e.TimeIndex, e.ProcessID, e.ByteOffset, e.PGLength)
	}
	for i, pg := range pgs {
		fmt.Printf("  [%d] t=%d rank=%d group=%q vars=%d attrs=%d\n",
			i, pg.Header.TimeIndex, pg.Header.ProcessID, pg.Header.GroupName, len(pg.Vars), len(pg.Attrs))
	}

	if showVars {
		fmt.Printf("variables (%d):\n", len(varIndex))
		for _, v := range varIndex {
			fmt.Printf("  %s/%s  type=%s  occurrences=%d\n", v.Key.Path, v.Key.Name, v.Key.Type, len(v.Occurrences))
		}
	}

	if showAttrs {
		fmt.Printf("attributes (%d):\n", len(attrIndex))
		for _, a := range attrIndex {
			fmt.Printf("  %s/%s  type=%s  records=%d\n", a.Key.Path, a.Key.Name, a.Key.Type, len(a.Records))
		}
	}

	return nil
}
