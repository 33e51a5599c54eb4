// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/adios-io/adios/pkg/dimtype"
)

// ByteOrder is the container format's default integer encoding. The
// minifooter's endianness byte can override this for a given file; nothing
// else in this package consults it, matching the specification's "unless
// the minifooter's endianness byte says otherwise" carve-out.
var ByteOrder = binary.LittleEndian

// writeString16 writes a 2-byte length-prefixed UTF-8 string.
func writeString16(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("container: string %q exceeds 16-bit length prefix", s)
	}
	if err := binary.Write(w, ByteOrder, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readString16 reads a 2-byte length-prefixed UTF-8 string.
func readString16(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, ByteOrder, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func padTo8(n int) int {
	if rem := n % 8; rem != 0 {
		return 8 - rem
	}
	return 0
}

func encodeDim(w io.Writer, d DimRecord) error {
	fields := []interface{}{d.Rank, d.Local, d.Global, d.Offset, d.DimVarID, d.GlobalVarID, d.OffsetVarID}
	for _, f := range fields {
		if err := binary.Write(w, ByteOrder, f); err != nil {
			return err
		}
	}
	return nil
}

func decodeDim(r io.Reader) (DimRecord, error) {
	var d DimRecord
	fields := []interface{}{&d.Rank, &d.Local, &d.Global, &d.Offset, &d.DimVarID, &d.GlobalVarID, &d.OffsetVarID}
	for _, f := range fields {
		if err := binary.Read(r, ByteOrder, f); err != nil {
			return DimRecord{}, err
		}
	}
	return d, nil
}

func encodeCharacteristic(w io.Writer, c Characteristic) error {
	if err := binary.Write(w, ByteOrder, uint8(c.Kind)); err != nil {
		return err
	}
	if err := binary.Write(w, ByteOrder, uint32(len(c.Payload))); err != nil {
		return err
	}
	if _, err := w.Write(c.Payload); err != nil {
		return err
	}
	if pad := padTo8(len(c.Payload)); pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return err
		}
	}
	return nil
}

func decodeCharacteristic(r io.Reader) (Characteristic, error) {
	var kind uint8
	if err := binary.Read(r, ByteOrder, &kind); err != nil {
		return Characteristic{}, err
	}
	var plen uint32
	if err := binary.Read(r, ByteOrder, &plen); err != nil {
		return Characteristic{}, err
	}
	payload := make([]byte, plen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Characteristic{}, err
	}
	if pad := padTo8(int(plen)); pad > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil {
			return Characteristic{}, err
		}
	}
	return Characteristic{Kind: CharacteristicKind(kind), Payload: payload}, nil
}

// EncodeVar appends v's record (var_length prefix included) to w.
func EncodeVar(w io.Writer, v VarRecord) error {
	var body bytes.Buffer
	if err := binary.Write(&body, ByteOrder, v.MemberID); err != nil {
		return err
	}
	if err := binary.Write(&body, ByteOrder, v.GroupMemberID); err != nil {
		return err
	}
	if err := writeString16(&body, v.Name); err != nil {
		return err
	}
	if err := writeString16(&body, v.Path); err != nil {
		return err
	}
	if err := binary.Write(&body, ByteOrder, uint8(v.Type)); err != nil {
		return err
	}
	isDim := uint8(0)
	if v.IsDim {
		isDim = 1
	}
	if err := binary.Write(&body, ByteOrder, isDim); err != nil {
		return err
	}
	if len(v.Dims) > 0xFF {
		return fmt.Errorf("container: variable %q has too many dimensions for an 8-bit count", v.Name)
	}
	if err := binary.Write(&body, ByteOrder, uint8(len(v.Dims))); err != nil {
		return err
	}
	for _, d := range v.Dims {
		if err := encodeDim(&body, d); err != nil {
			return err
		}
	}
	if len(v.Characteristics) > 0xFF {
		return fmt.Errorf("container: variable %q has too many characteristics for an 8-bit count", v.Name)
	}
	if err := binary.Write(&body, ByteOrder, uint8(len(v.Characteristics))); err != nil {
		return err
	}
	for _, c := range v.Characteristics {
		if err := encodeCharacteristic(&body, c); err != nil {
			return err
		}
	}

	if err := binary.Write(w, ByteOrder, uint64(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// DecodeVar reads one variable record from r.
func DecodeVar(r io.Reader) (VarRecord, error) {
	var length uint64
	if err := binary.Read(r, ByteOrder, &length); err != nil {
		return VarRecord{}, err
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return VarRecord{}, err
	}
	br := bytes.NewReader(body)

	var v VarRecord
	if err := binary.Read(br, ByteOrder, &v.MemberID); err != nil {
		return VarRecord{}, err
	}
	if err := binary.Read(br, ByteOrder, &v.GroupMemberID); err != nil {
		return VarRecord{}, err
	}
	name, err := readString16(br)
	if err != nil {
		return VarRecord{}, err
	}
	v.Name = name
	path, err := readString16(br)
	if err != nil {
		return VarRecord{}, err
	}
	v.Path = path

	var typ, isDim, ndims uint8
	if err := binary.Read(br, ByteOrder, &typ); err != nil {
		return VarRecord{}, err
	}
	v.Type = dimtype.Type(typ)
	if err := binary.Read(br, ByteOrder, &isDim); err != nil {
		return VarRecord{}, err
	}
	v.IsDim = isDim != 0
	if err := binary.Read(br, ByteOrder, &ndims); err != nil {
		return VarRecord{}, err
	}
	v.Dims = make([]DimRecord, ndims)
	for i := range v.Dims {
		d, err := decodeDim(br)
		if err != nil {
			return VarRecord{}, err
		}
		v.Dims[i] = d
	}

	var nchars uint8
	if err := binary.Read(br, ByteOrder, &nchars); err != nil {
		return VarRecord{}, err
	}
	v.Characteristics = make([]Characteristic, nchars)
	for i := range v.Characteristics {
		c, err := decodeCharacteristic(br)
		if err != nil {
			return VarRecord{}, err
		}
		v.Characteristics[i] = c
	}

	return v, nil
}

// EncodeAttr appends a's record (length prefix included) to w.
func EncodeAttr(w io.Writer, a AttrRecord) error {
	var body bytes.Buffer
	if err := binary.Write(&body, ByteOrder, a.MemberID); err != nil {
		return err
	}
	if err := writeString16(&body, a.Name); err != nil {
		return err
	}
	if err := writeString16(&body, a.Path); err != nil {
		return err
	}
	if err := binary.Write(&body, ByteOrder, uint8(a.Type)); err != nil {
		return err
	}
	hasRef := uint8(0)
	if a.HasRef {
		hasRef = 1
	}
	if err := binary.Write(&body, ByteOrder, hasRef); err != nil {
		return err
	}
	if a.HasRef {
		if err := binary.Write(&body, ByteOrder, a.RefVarID); err != nil {
			return err
		}
	} else {
		if err := binary.Write(&body, ByteOrder, uint32(len(a.Value))); err != nil {
			return err
		}
		if _, err := body.Write(a.Value); err != nil {
			return err
		}
	}

	if err := binary.Write(w, ByteOrder, uint64(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// DecodeAttr reads one attribute record from r.
func DecodeAttr(r io.Reader) (AttrRecord, error) {
	var length uint64
	if err := binary.Read(r, ByteOrder, &length); err != nil {
		return AttrRecord{}, err
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return AttrRecord{}, err
	}
	br := bytes.NewReader(body)

	var a AttrRecord
	if err := binary.Read(br, ByteOrder, &a.MemberID); err != nil {
		return AttrRecord{}, err
	}
	name, err := readString16(br)
	if err != nil {
		return AttrRecord{}, err
	}
	a.Name = name
	path, err := readString16(br)
	if err != nil {
		return AttrRecord{}, err
	}
	a.Path = path

	var typ, hasRef uint8
	if err := binary.Read(br, ByteOrder, &typ); err != nil {
		return AttrRecord{}, err
	}
	a.Type = dimtype.Type(typ)
	if err := binary.Read(br, ByteOrder, &hasRef); err != nil {
		return AttrRecord{}, err
	}
	a.HasRef = hasRef != 0
	if a.HasRef {
		if err := binary.Read(br, ByteOrder, &a.RefVarID); err != nil {
			return AttrRecord{}, err
		}
	} else {
		var vlen uint32
		if err := binary.Read(br, ByteOrder, &vlen); err != nil {
			return AttrRecord{}, err
		}
		a.Value = make([]byte, vlen)
		if _, err := io.ReadFull(br, a.Value); err != nil {
			return AttrRecord{}, err
		}
	}
	return a, nil
}

// EncodePG appends pg's record (pg_length prefix included) to w.
func EncodePG(w io.Writer, pg PG) error {
	var body bytes.Buffer
	if err := writeString16(&body, pg.Header.GroupName); err != nil {
		return err
	}
	fortran := uint8(0)
	if pg.Header.FortranFlag {
		fortran = 1
	}
	if err := binary.Write(&body, ByteOrder, fortran); err != nil {
		return err
	}
	if err := binary.Write(&body, ByteOrder, pg.Header.ProcessID); err != nil {
		return err
	}
	if err := writeString16(&body, pg.Header.TimeIndexName); err != nil {
		return err
	}
	if err := binary.Write(&body, ByteOrder, pg.Header.TimeIndex); err != nil {
		return err
	}

	if err := binary.Write(&body, ByteOrder, uint32(len(pg.Vars))); err != nil {
		return err
	}
	for _, v := range pg.Vars {
		if err := EncodeVar(&body, v); err != nil {
			return err
		}
	}
	if err := binary.Write(&body, ByteOrder, uint32(len(pg.Attrs))); err != nil {
		return err
	}
	for _, a := range pg.Attrs {
		if err := EncodeAttr(&body, a); err != nil {
			return err
		}
	}

	if err := binary.Write(w, ByteOrder, uint64(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// DecodePG reads one Process Group record from r.
func DecodePG(r io.Reader) (PG, error) {
	var length uint64
	if err := binary.Read(r, ByteOrder, &length); err != nil {
		return PG{}, err
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return PG{}, err
	}
	br := bytes.NewReader(body)

	var pg PG
	name, err := readString16(br)
	if err != nil {
		return PG{}, err
	}
	pg.Header.GroupName = name

	var fortran uint8
	if err := binary.Read(br, ByteOrder, &fortran); err != nil {
		return PG{}, err
	}
	pg.Header.FortranFlag = fortran != 0
	if err := binary.Read(br, ByteOrder, &pg.Header.ProcessID); err != nil {
		return PG{}, err
	}
	tin, err := readString16(br)
	if err != nil {
		return PG{}, err
	}
	pg.Header.TimeIndexName = tin
	if err := binary.Read(br, ByteOrder, &pg.Header.TimeIndex); err != nil {
		return PG{}, err
	}

	var nvars uint32
	if err := binary.Read(br, ByteOrder, &nvars); err != nil {
		return PG{}, err
	}
	pg.Vars = make([]VarRecord, nvars)
	for i := range pg.Vars {
		v, err := DecodeVar(br)
		if err != nil {
			return PG{}, fmt.Errorf("container: decoding variable %d of PG %q: %w", i, pg.Header.GroupName, err)
		}
		pg.Vars[i] = v
	}

	var nattrs uint32
	if err := binary.Read(br, ByteOrder, &nattrs); err != nil {
		return PG{}, err
	}
	pg.Attrs = make([]AttrRecord, nattrs)
	for i := range pg.Attrs {
		a, err := DecodeAttr(br)
		if err != nil {
			return PG{}, fmt.Errorf("container: decoding attribute %d of PG %q: %w", i, pg.Header.GroupName, err)
		}
		pg.Attrs[i] = a
	}

	return pg, nil
}
