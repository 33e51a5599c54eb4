// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the 8-byte trailing sentinel every container file ends with,
// immediately after the fixed-size minifooter fields.
var Magic = [8]byte{'A', 'D', 'I', 'O', 'S', 'B', 'P', '1'}

// FixedFooterSize is the minifooter's fixed prefix per §4.E: three 8-byte
// index offsets plus the 4-byte version+flags word (8+8+8+4 = 28). The
// endianness byte, file_size, and trailing magic follow it and are not
// counted in that figure.
const FixedFooterSize = 28

// FooterSize is the minifooter's total on-disk size: the 28-byte fixed
// prefix, the endianness byte, the file_size field, and the trailing magic.
const FooterSize = FixedFooterSize + 1 + 8 + 8

// Format version for the current encoding. The high byte of the encoded
// version field carries flag bits (currently just PartialStepFlag); the low
// 24 bits carry this number.
const FormatVersion = 1

// PartialStepFlag marks a step that was written despite a rank failing to
// produce a PG, per §4.G's configurable partial-step policy.
const PartialStepFlag = 1 << 24

// Minifooter is the trailer every container file ends with: a fixed
// 28-byte prefix (three index offsets plus a version+flags word), followed
// by an endianness byte, the file size (0 if unknown at close), and the
// trailing magic.
type Minifooter struct {
	PGIndexOffset   uint64
	VarsIndexOffset uint64
	AttrsIndexOffset uint64
	Version         uint32 // low 24 bits = format version, high byte = flags
	Endianness      uint8
	FileSize        uint64
}

// PartialStep reports whether the partial-step flag bit is set.
func (m Minifooter) PartialStep() bool { return m.Version&PartialStepFlag != 0 }

// Encode writes the minifooter to w.
func (m Minifooter) Encode(w io.Writer) error {
	fields := []interface{}{m.PGIndexOffset, m.VarsIndexOffset, m.AttrsIndexOffset, m.Version, m.Endianness, m.FileSize}
	for _, f := range fields {
		if err := binary.Write(w, ByteOrder, f); err != nil {
			return err
		}
	}
	_, err := w.Write(Magic[:])
	return err
}

// DecodeMinifooter reads the trailing minifooter of a container file.
func DecodeMinifooter(r io.Reader) (Minifooter, error) {
	var m Minifooter
	fields := []interface{}{&m.PGIndexOffset, &m.VarsIndexOffset, &m.AttrsIndexOffset, &m.Version, &m.Endianness, &m.FileSize}
	for _, f := range fields {
		if err := binary.Read(r, ByteOrder, f); err != nil {
			return Minifooter{}, err
		}
	}
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Minifooter{}, err
	}
	if magic != Magic {
		return Minifooter{}, fmt.Errorf("container: invalid trailing magic %q", magic)
	}
	return m, nil
}
