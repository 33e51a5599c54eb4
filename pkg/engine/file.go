// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/adios-io/adios/pkg/adioserr"
	"github.com/adios-io/adios/pkg/container"
	"github.com/adios-io/adios/pkg/dimtype"
	"github.com/adios-io/adios/pkg/metadata"
	"github.com/adios-io/adios/pkg/stats"
)

// State is a File's position in the open→group_size→write*→close state
// machine (§4.F).
type State uint8

const (
	StateFresh State = iota
	StateOpened
	StateSized
	StateWriting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "Fresh"
	case StateOpened:
		return "Opened"
	case StateSized:
		return "Sized"
	case StateWriting:
		return "Writing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// File is one open write session against a group. Not safe for concurrent
// use by multiple goroutines on the same handle; the per-process engine and
// arena it draws from are.
type File struct {
	ID         uuid.UUID
	engine     *Engine
	group      *metadata.Group
	mode       metadata.FileMode
	transport  Transport
	processID  uint32
	fortranFlag bool

	mu    sync.Mutex
	state State
	step  uint64

	declaredBytes  int
	reservedOffset uint64
	cursor         uint64

	written   *metadata.WrittenLog
	varStats  map[uint32]*stats.Stats
	scalarU64 map[uint32]uint64
	scalarRaw map[uint32][]byte
}

// Open begins a write (or read-only) session against group, per §4.F's
// `open(group, file, mode, comm)`. processID identifies this rank within
// the communicator; transport receives the completed PG at Close.
func Open(group *metadata.Group, mode metadata.FileMode, processID uint32, transport Transport) (*File, error) {
	if group == nil {
		return nil, adioserr.Set(adioserr.InvalidGroup, "open: group must not be nil")
	}
	if transport == nil {
		transport = NullTransport{}
	}

	e := GetEngine()
	f := &File{
		ID:        uuid.New(),
		engine:    e,
		group:     group,
		mode:      mode,
		transport: transport,
		processID: processID,
		state:     StateOpened,
		written:   metadata.NewWrittenLog(),
		varStats:  make(map[uint32]*stats.Stats),
		scalarU64: make(map[uint32]uint64),
		scalarRaw: make(map[uint32][]byte),
	}
	f.step = group.BeginStep()
	e.trackOpen(f)
	return f, nil
}

// State returns the handle's current lifecycle state.
func (f *File) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// metadataOverhead estimates the per-PG bookkeeping bytes group_size must
// reserve alongside the caller's declared payload: one characteristic
// allowance per variable plus a coarse attribute allowance, matching the
// "+metadata_overhead" term in §4.F's group_size.
func metadataOverhead(g *metadata.Group) int {
	return len(g.Vars())*64 + len(g.Attrs())*32
}

// GroupSize reserves declaredPayloadBytes+metadata_overhead in the shared
// arena and returns the total reserved, per §4.F's `group_size`.
func (f *File) GroupSize(declaredPayloadBytes int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateOpened {
		return 0, adioserr.Set(adioserr.InvalidFilePointer, "group_size called outside Opened state (have %s)", f.state)
	}

	total := declaredPayloadBytes + metadataOverhead(f.group)
	offset, err := f.engine.arena.Reserve(total)
	if err != nil {
		return 0, err
	}

	f.reservedOffset = offset
	f.cursor = offset
	f.declaredBytes = total
	f.state = StateSized
	return total, nil
}

func (f *File) reserveScalarSpace(n int) (uint64, error) {
	if f.cursor+uint64(n) > f.reservedOffset+uint64(f.declaredBytes) {
		return 0, adioserr.Set(adioserr.BufferOverflow, "write: scalar payload of %d bytes exceeds this step's group_size reservation", n)
	}
	off := f.cursor
	f.cursor += uint64(n)
	return off, nil
}

// Write resolves var's dimensions, copies or borrows its payload per
// invariant D1, folds statistics, and appends to the written-var log, per
// §4.F's `write(name, ptr)`. path disambiguates the lookup only when the
// group's AllUniqueVarNames is false; pass "" otherwise.
func (f *File) Write(path, name string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateSized && f.state != StateWriting {
		return adioserr.Set(adioserr.InvalidFilePointer, "write called outside Sized|Writing state (have %s)", f.state)
	}

	v, ok := f.group.FindVarByName(path, name)
	if !ok {
		return adioserr.Set(adioserr.InvalidVarName, "write: unknown variable %q", name)
	}
	if err := metadata.CheckWritable(f.mode, v); err != nil {
		return err
	}

	resolver := &fileResolver{f: f}
	resolvedDims := make([]uint64, len(v.Dimensions))
	for i, d := range v.Dimensions {
		rv, err := dimtype.Resolve(d, resolver)
		if err != nil {
			return adioserr.Set(adioserr.InvalidDimension, "write %q: %v", name, err)
		}
		resolvedDims[i] = rv
	}

	var offset uint64
	if v.Scalar() {
		raw, err := encodeScalar(v.Type, value)
		if err != nil {
			return adioserr.Set(adioserr.InvalidData, "write %q: %v", name, err)
		}
		off, err := f.reserveScalarSpace(len(raw))
		if err != nil {
			return err
		}
		if err := f.engine.arena.WriteAt(off, raw); err != nil {
			return err
		}
		offset = off
		f.scalarRaw[v.ID] = raw
		if u64, ok := toUint64(value); ok {
			f.scalarU64[v.ID] = u64
		}
		f.written.CopyVarWritten(v, raw, nil, resolvedDims, offset)
	} else {
		count := productU64(resolvedDims)
		if count == 0 {
			return adioserr.Set(adioserr.InvalidData, "write %q: zero-dimensional write with empty data", name)
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return adioserr.Set(adioserr.InvalidData, "write %q: array variable requires a slice value", name)
		}
		if uint64(rv.Len()) != count {
			return adioserr.Set(adioserr.InvalidData, "write %q: value has %d elements, dims resolve to %d", name, rv.Len(), count)
		}
		offset = f.cursor // D1: no arena bytes consumed for a borrowed array
		f.written.CopyVarWritten(v, nil, value, resolvedDims, offset)
	}

	f.foldValue(v, value)
	f.state = StateWriting
	return nil
}

func productU64(dims []uint64) uint64 {
	if len(dims) == 0 {
		return 1
	}
	p := uint64(1)
	for _, d := range dims {
		p *= d
	}
	return p
}

// Close builds the Process Group from the written-var log, hands it to the
// attached transport, releases the arena reservation, and retires the
// handle, per §4.F's `close`. partial marks the step as incomplete (§4.G).
func (f *File) Close(partial bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateFresh || f.state == StateClosed {
		return adioserr.Set(adioserr.InvalidFilePointer, "close called on a handle that is %s", f.state)
	}

	// §8's append-idempotence property: reopening a file in append mode
	// and writing nothing must not perturb it beyond the minifooter's
	// file_size field. The cheapest way to honor that exactly is to skip
	// the publish altogether when the written-var log is empty, so no new
	// PG is ever handed to the transport for this step.
	if f.mode == metadata.ModeAppend && len(f.written.Entries()) == 0 {
		f.releaseSession()
		return nil
	}

	pg := container.PG{
		Header: container.PGHeader{
			GroupName:     f.group.Name,
			FortranFlag:   f.fortranFlag,
			ProcessID:     f.processID,
			TimeIndexName: f.group.TimeIndexName,
			TimeIndex:     uint32(f.step),
		},
	}

	for _, e := range f.written.Entries() {
		rec, err := f.buildVarRecord(e)
		if err != nil {
			return err
		}
		pg.Vars = append(pg.Vars, rec)
	}
	for _, a := range f.group.Attrs() {
		pg.Attrs = append(pg.Attrs, f.buildAttrRecord(a))
	}

	if err := f.transport.Publish(pg, partial, f.mode); err != nil {
		return err
	}

	f.releaseSession()
	return nil
}

// releaseSession returns this handle's arena reservation and stats slots
// and retires it, common to both the normal publish path and the
// zero-write append short-circuit above.
func (f *File) releaseSession() {
	view := f.engine.arena.Snapshot()
	f.engine.arena.Release(view)
	for _, st := range f.varStats {
		st.Release()
	}
	f.written.FreeVarWritten()
	f.engine.untrackOpen(f.ID)
	f.state = StateClosed
}

// buildVarRecord assembles e's on-disk record, running its variable's
// Transform (identity by default) over the encoded value before it is
// stored in the CharValue characteristic the read API later decodes
// (§8's Round-trip property). A non-identity transform also attaches a
// CharTransform characteristic naming it, so a reader can tell the value
// passed through a hook.
func (f *File) buildVarRecord(e metadata.WrittenEntry) (container.VarRecord, error) {
	v := e.Var
	rec := container.VarRecord{
		MemberID:      v.ID,
		GroupMemberID: f.group.ID,
		Name:          v.Name,
		Path:          v.Path,
		Type:          v.Type,
		IsDim:         v.IsDim,
		Characteristics: []container.Characteristic{
			{Kind: container.CharOffset, Payload: encodeU64(e.WriteOffset)},
		},
	}

	rec.Dims = make([]container.DimRecord, len(e.ResolvedDims))
	for i, d := range e.ResolvedDims {
		rec.Dims[i] = container.DimRecord{Rank: uint8(i), Local: d}
	}

	var raw []byte
	if v.Scalar() {
		raw = e.Scalar
	} else if e.Borrowed != nil {
		encoded, err := encodeArrayValue(v.Type, e.Borrowed, int(productU64(e.ResolvedDims)))
		if err != nil {
			return container.VarRecord{}, adioserr.Set(adioserr.InvalidData, "close %q: %v", v.Name, err)
		}
		raw = encoded
	}
	if raw != nil {
		transform := container.Lookup(v.Transform)
		transformed, err := transform.Apply(raw)
		if err != nil {
			return container.VarRecord{}, adioserr.Set(adioserr.InvalidData, "close %q: transform %q: %v", v.Name, transform.Name(), err)
		}
		rec.Characteristics = append(rec.Characteristics, container.Characteristic{
			Kind:    container.CharValue,
			Payload: transformed,
		})
		if transform.Name() != "" {
			rec.Characteristics = append(rec.Characteristics, container.Characteristic{
				Kind:    container.CharTransform,
				Payload: []byte(transform.Name()),
			})
		}
	}

	rec.Characteristics = append(rec.Characteristics, statsCharacteristics(f.varStats[v.ID])...)
	return rec, nil
}

func (f *File) buildAttrRecord(a *metadata.Attribute) container.AttrRecord {
	rec := container.AttrRecord{
		MemberID: a.ID,
		Name:     a.Name,
		Path:     a.Path,
		Type:     a.Type,
		RefVarID: a.VarRef,
		HasRef:   a.HasRef,
	}
	if a.HasRef {
		rec.Value = f.scalarRaw[a.VarRef]
	} else {
		rec.Value = a.Value
	}
	return rec
}
