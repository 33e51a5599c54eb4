// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package container implements the bit-exact on-disk layout: a container
// file is [PG*] [vars_index] [attrs_index] [pg_index] [minifooter]. Grounded
// on the teacher's binaryCheckpoint.go/walCheckpoint.go pair: magic+version
// header, length-prefixed encoding/binary records, and the
// writeString16/readString16 helpers for length-prefixed UTF-8 fields.
package container

import "github.com/adios-io/adios/pkg/dimtype"

// CharacteristicKind enumerates the per-variable characteristic records
// attached to a variable record (§4.E).
type CharacteristicKind uint8

const (
	CharOffset CharacteristicKind = iota
	CharDimensions
	CharValue
	CharMin
	CharMax
	CharSum
	CharSumSq
	CharHist
	CharStatBitmap
	CharTransform
)

// Characteristic is one {kind, payload} pair following a variable record.
// Payload is already encoded by the caller; the codec pads it to an 8-byte
// boundary on write.
type Characteristic struct {
	Kind    CharacteristicKind
	Payload []byte
}

// DimRecord is one dimension entry in a variable record. A zero *VarID
// field means the neighbouring u64 is a literal, not a variable reference.
type DimRecord struct {
	Rank        uint8
	Local       uint64
	Global      uint64
	Offset      uint64
	DimVarID    uint16
	GlobalVarID uint16
	OffsetVarID uint16
}

// VarRecord is one variable's on-disk record within a PG.
type VarRecord struct {
	MemberID        uint32
	GroupMemberID   uint32
	Name            string
	Path            string
	Type            dimtype.Type
	IsDim           bool
	Dims            []DimRecord
	Characteristics []Characteristic
}

// AttrRecord is one attribute's on-disk record within a PG: either an
// inline literal Value, or a RefVarID pointing at the variable supplying
// its current scalar value.
type AttrRecord struct {
	MemberID uint32
	Name     string
	Path     string
	Type     dimtype.Type
	Value    []byte
	RefVarID uint32
	HasRef   bool
}

// PGHeader is the fixed-format prefix of a Process Group record.
type PGHeader struct {
	GroupName     string
	FortranFlag   bool
	ProcessID     uint32
	TimeIndexName string
	TimeIndex     uint32
}

// PG is one complete Process Group: a header plus the variable and
// attribute records written during the step that produced it.
type PG struct {
	Header PGHeader
	Vars   []VarRecord
	Attrs  []AttrRecord
}
