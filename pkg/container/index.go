// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

import (
	"encoding/binary"
	"errors"
	"io"
	"sort"

	"github.com/adios-io/adios/pkg/dimtype"
)

var errTooManyCharacteristics = errors.New("container: too many characteristics for an 8-bit count")

// PGIndexEntry locates one Process Group within the file.
type PGIndexEntry struct {
	ProcessID  uint32
	TimeIndex  uint32
	ByteOffset uint64
	PGLength   uint64
}

// SortPGIndex orders entries by (time_index, process_id), the ordering
// §4.G requires for PGs within a file.
func SortPGIndex(entries []PGIndexEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TimeIndex != entries[j].TimeIndex {
			return entries[i].TimeIndex < entries[j].TimeIndex
		}
		return entries[i].ProcessID < entries[j].ProcessID
	})
}

// EncodePGIndex writes a count-prefixed list of PG index entries.
func EncodePGIndex(w io.Writer, entries []PGIndexEntry) error {
	if err := binary.Write(w, ByteOrder, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		fields := []interface{}{e.ProcessID, e.TimeIndex, e.ByteOffset, e.PGLength}
		for _, f := range fields {
			if err := binary.Write(w, ByteOrder, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodePGIndex reads a count-prefixed list of PG index entries.
func DecodePGIndex(r io.Reader) ([]PGIndexEntry, error) {
	var n uint32
	if err := binary.Read(r, ByteOrder, &n); err != nil {
		return nil, err
	}
	out := make([]PGIndexEntry, n)
	for i := range out {
		e := &out[i]
		fields := []interface{}{&e.ProcessID, &e.TimeIndex, &e.ByteOffset, &e.PGLength}
		for _, f := range fields {
			if err := binary.Read(r, ByteOrder, f); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// VarIndexKey identifies one logical variable across every PG it appears
// in: (group, name, path, type).
type VarIndexKey struct {
	Group string
	Name  string
	Path  string
	Type  dimtype.Type
}

// VarOccurrence is one PG's contribution to a merged variable index entry.
type VarOccurrence struct {
	PGIndex         uint32
	Characteristics []Characteristic
}

// VarIndexEntry is a variable index entry: contributions from every PG the
// variable appeared in, merged under one (group,name,path,type) key.
type VarIndexEntry struct {
	Key         VarIndexKey
	MemberID    uint32
	Occurrences []VarOccurrence
}

// BuildVarIndex merges the variable records of every pg in order into a
// single list of entries keyed by (group,name,path,type), growing one
// characteristic-list entry per PG a variable appears in.
func BuildVarIndex(pgs []PG) []VarIndexEntry {
	byKey := make(map[VarIndexKey]*VarIndexEntry)
	var order []VarIndexKey

	for pgIdx, pg := range pgs {
		for _, v := range pg.Vars {
			key := VarIndexKey{Group: pg.Header.GroupName, Name: v.Name, Path: v.Path, Type: v.Type}
			e, ok := byKey[key]
			if !ok {
				e = &VarIndexEntry{Key: key, MemberID: v.MemberID}
				byKey[key] = e
				order = append(order, key)
			}
			e.Occurrences = append(e.Occurrences, VarOccurrence{
				PGIndex:         uint32(pgIdx),
				Characteristics: v.Characteristics,
			})
		}
	}

	out := make([]VarIndexEntry, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

// EncodeVarIndex writes a count-prefixed list of merged variable index
// entries.
func EncodeVarIndex(w io.Writer, entries []VarIndexEntry) error {
	if err := binary.Write(w, ByteOrder, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeString16(w, e.Key.Group); err != nil {
			return err
		}
		if err := writeString16(w, e.Key.Name); err != nil {
			return err
		}
		if err := writeString16(w, e.Key.Path); err != nil {
			return err
		}
		if err := binary.Write(w, ByteOrder, uint8(e.Key.Type)); err != nil {
			return err
		}
		if err := binary.Write(w, ByteOrder, e.MemberID); err != nil {
			return err
		}
		if err := binary.Write(w, ByteOrder, uint32(len(e.Occurrences))); err != nil {
			return err
		}
		for _, occ := range e.Occurrences {
			if err := binary.Write(w, ByteOrder, occ.PGIndex); err != nil {
				return err
			}
			if len(occ.Characteristics) > 0xFF {
				return errTooManyCharacteristics
			}
			if err := binary.Write(w, ByteOrder, uint8(len(occ.Characteristics))); err != nil {
				return err
			}
			for _, c := range occ.Characteristics {
				if err := encodeCharacteristic(w, c); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DecodeVarIndex reads a count-prefixed list of merged variable index
// entries.
func DecodeVarIndex(r io.Reader) ([]VarIndexEntry, error) {
	var n uint32
	if err := binary.Read(r, ByteOrder, &n); err != nil {
		return nil, err
	}
	out := make([]VarIndexEntry, n)
	for i := range out {
		e := &out[i]
		group, err := readString16(r)
		if err != nil {
			return nil, err
		}
		name, err := readString16(r)
		if err != nil {
			return nil, err
		}
		path, err := readString16(r)
		if err != nil {
			return nil, err
		}
		var typ uint8
		if err := binary.Read(r, ByteOrder, &typ); err != nil {
			return nil, err
		}
		e.Key = VarIndexKey{Group: group, Name: name, Path: path, Type: dimtype.Type(typ)}
		if err := binary.Read(r, ByteOrder, &e.MemberID); err != nil {
			return nil, err
		}
		var nocc uint32
		if err := binary.Read(r, ByteOrder, &nocc); err != nil {
			return nil, err
		}
		e.Occurrences = make([]VarOccurrence, nocc)
		for j := range e.Occurrences {
			o := &e.Occurrences[j]
			if err := binary.Read(r, ByteOrder, &o.PGIndex); err != nil {
				return nil, err
			}
			var nchars uint8
			if err := binary.Read(r, ByteOrder, &nchars); err != nil {
				return nil, err
			}
			o.Characteristics = make([]Characteristic, nchars)
			for k := range o.Characteristics {
				c, err := decodeCharacteristic(r)
				if err != nil {
					return nil, err
				}
				o.Characteristics[k] = c
			}
		}
	}
	return out, nil
}

// AttrIndexEntry is the attribute analogue of VarIndexEntry.
type AttrIndexEntry struct {
	Key      VarIndexKey
	MemberID uint32
	Records  []AttrRecord
}

// BuildAttrIndex merges the attribute records of every pg in order into a
// single list keyed by (group,name,path,type).
func BuildAttrIndex(pgs []PG) []AttrIndexEntry {
	byKey := make(map[VarIndexKey]*AttrIndexEntry)
	var order []VarIndexKey

	for _, pg := range pgs {
		for _, a := range pg.Attrs {
			key := VarIndexKey{Group: pg.Header.GroupName, Name: a.Name, Path: a.Path, Type: a.Type}
			e, ok := byKey[key]
			if !ok {
				e = &AttrIndexEntry{Key: key, MemberID: a.MemberID}
				byKey[key] = e
				order = append(order, key)
			}
			e.Records = append(e.Records, a)
		}
	}

	out := make([]AttrIndexEntry, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

// EncodeAttrIndex writes a count-prefixed list of merged attribute index
// entries.
func EncodeAttrIndex(w io.Writer, entries []AttrIndexEntry) error {
	if err := binary.Write(w, ByteOrder, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeString16(w, e.Key.Group); err != nil {
			return err
		}
		if err := binary.Write(w, ByteOrder, uint32(len(e.Records))); err != nil {
			return err
		}
		for _, a := range e.Records {
			if err := EncodeAttr(w, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeAttrIndex reads a count-prefixed list of merged attribute index
// entries. The member id is reconstructed from the first record.
func DecodeAttrIndex(r io.Reader) ([]AttrIndexEntry, error) {
	var n uint32
	if err := binary.Read(r, ByteOrder, &n); err != nil {
		return nil, err
	}
	out := make([]AttrIndexEntry, n)
	for i := range out {
		group, err := readString16(r)
		if err != nil {
			return nil, err
		}
		var nrec uint32
		if err := binary.Read(r, ByteOrder, &nrec); err != nil {
			return nil, err
		}
		recs := make([]AttrRecord, nrec)
		for j := range recs {
			a, err := DecodeAttr(r)
			if err != nil {
				return nil, err
			}
			recs[j] = a
		}
		out[i].Records = recs
		if len(recs) > 0 {
			out[i].MemberID = recs[0].MemberID
			out[i].Key = VarIndexKey{Group: group, Name: recs[0].Name, Path: recs[0].Path, Type: recs[0].Type}
		}
	}
	return out, nil
}
