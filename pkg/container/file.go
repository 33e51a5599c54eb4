// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

import (
	"io"
	"sort"
)

// WriteFile serializes a complete container: every pg, ordered by
// (time_index, process_id) per §4.G, followed by the merged vars/attrs
// indexes, the PG index, and the minifooter. partial marks the
// minifooter's partial_step flag (§4.G aggregator failure policy).
func WriteFile(w io.WriteSeeker, pgsIn []PG, partial bool) error {
	pgs := make([]PG, len(pgsIn))
	copy(pgs, pgsIn)
	sort.SliceStable(pgs, func(i, j int) bool {
		if pgs[i].Header.TimeIndex != pgs[j].Header.TimeIndex {
			return pgs[i].Header.TimeIndex < pgs[j].Header.TimeIndex
		}
		return pgs[i].Header.ProcessID < pgs[j].Header.ProcessID
	})

	pgOffsets := make([]uint64, len(pgs))
	pgLengths := make([]uint64, len(pgs))

	for i, pg := range pgs {
		offset, err := currentOffset(w)
		if err != nil {
			return err
		}
		pgOffsets[i] = offset

		if err := EncodePG(w, pg); err != nil {
			return err
		}
		end, err := currentOffset(w)
		if err != nil {
			return err
		}
		pgLengths[i] = end - offset
	}

	varsOffset, err := currentOffset(w)
	if err != nil {
		return err
	}
	if err := EncodeVarIndex(w, BuildVarIndex(pgs)); err != nil {
		return err
	}

	attrsOffset, err := currentOffset(w)
	if err != nil {
		return err
	}
	if err := EncodeAttrIndex(w, BuildAttrIndex(pgs)); err != nil {
		return err
	}

	pgIndexOffset, err := currentOffset(w)
	if err != nil {
		return err
	}
	pgIndex := make([]PGIndexEntry, len(pgs))
	for i, pg := range pgs {
		pgIndex[i] = PGIndexEntry{
			ProcessID:  pg.Header.ProcessID,
			TimeIndex:  pg.Header.TimeIndex,
			ByteOffset: pgOffsets[i],
			PGLength:   pgLengths[i],
		}
	}
	SortPGIndex(pgIndex)
	if err := EncodePGIndex(w, pgIndex); err != nil {
		return err
	}

	fileSize, err := currentOffset(w)
	if err != nil {
		return err
	}
	// fileSize here covers everything up to (not including) the footer
	// itself; the footer's fixed FooterSize is added below so file_size
	// records the exact total.
	version := uint32(FormatVersion)
	if partial {
		version |= PartialStepFlag
	}
	footer := Minifooter{
		PGIndexOffset:    pgIndexOffset,
		VarsIndexOffset:  varsOffset,
		AttrsIndexOffset: attrsOffset,
		Version:          version,
		Endianness:       0, // 0 = little-endian, matching ByteOrder
		FileSize:         fileSize + FooterSize,
	}
	return footer.Encode(w)
}

func currentOffset(w io.Seeker) (uint64, error) {
	off, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return uint64(off), nil
}

// ReadFile reads back a complete container previously written by WriteFile:
// the minifooter, then the three indexes, then every PG the PG index
// references.
func ReadFile(r io.ReadSeeker) (pgs []PG, footer Minifooter, varIndex []VarIndexEntry, attrIndex []AttrIndexEntry, pgIndex []PGIndexEntry, err error) {
	if _, err = r.Seek(-FooterSize, io.SeekEnd); err != nil {
		return nil, Minifooter{}, nil, nil, nil, err
	}
	footer, err = DecodeMinifooter(r)
	if err != nil {
		return nil, Minifooter{}, nil, nil, nil, err
	}

	if _, err = r.Seek(int64(footer.VarsIndexOffset), io.SeekStart); err != nil {
		return nil, Minifooter{}, nil, nil, nil, err
	}
	varIndex, err = DecodeVarIndex(r)
	if err != nil {
		return nil, Minifooter{}, nil, nil, nil, err
	}

	if _, err = r.Seek(int64(footer.AttrsIndexOffset), io.SeekStart); err != nil {
		return nil, Minifooter{}, nil, nil, nil, err
	}
	attrIndex, err = DecodeAttrIndex(r)
	if err != nil {
		return nil, Minifooter{}, nil, nil, nil, err
	}

	if _, err = r.Seek(int64(footer.PGIndexOffset), io.SeekStart); err != nil {
		return nil, Minifooter{}, nil, nil, nil, err
	}
	pgIndex, err = DecodePGIndex(r)
	if err != nil {
		return nil, Minifooter{}, nil, nil, nil, err
	}

	pgs = make([]PG, len(pgIndex))
	for i, e := range pgIndex {
		if _, err = r.Seek(int64(e.ByteOffset), io.SeekStart); err != nil {
			return nil, Minifooter{}, nil, nil, nil, err
		}
		pg, derr := DecodePG(r)
		if derr != nil {
			return nil, Minifooter{}, nil, nil, nil, derr
		}
		pgs[i] = pg
	}

	return pgs, footer, varIndex, attrIndex, pgIndex, nil
}
