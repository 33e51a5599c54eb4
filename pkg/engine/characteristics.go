// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/adios-io/adios/pkg/container"
	"github.com/adios-io/adios/pkg/stats"
)

// statsCharacteristics flattens a variable's folded Stats into the
// {kind, payload} characteristic records the container codec attaches to
// its variable record (§4.E). Each payload is tagged with its component
// index so a reader can tell which of magnitude/real/imag a complex
// characteristic belongs to.
func statsCharacteristics(st *stats.Stats) []container.Characteristic {
	if st == nil || st.Bitmap == 0 {
		return nil
	}

	out := []container.Characteristic{
		{Kind: container.CharStatBitmap, Payload: []byte{byte(st.Bitmap)}},
	}

	for i, c := range st.Components {
		comp := uint8(i)
		if st.Bitmap.Has(stats.KindMin) {
			out = append(out, taggedFloat(container.CharMin, comp, c.Min))
		}
		if st.Bitmap.Has(stats.KindMax) {
			out = append(out, taggedFloat(container.CharMax, comp, c.Max))
		}
		if st.Bitmap.Has(stats.KindSum) {
			out = append(out, taggedFloat(container.CharSum, comp, c.Sum))
		}
		if st.Bitmap.Has(stats.KindSumSq) {
			out = append(out, taggedFloat(container.CharSumSq, comp, c.SumSq))
		}
		if st.Bitmap.Has(stats.KindHist) && c.Hist != nil {
			out = append(out, encodeHistogram(comp, c.Hist))
		}
	}
	return out
}

func taggedFloat(kind container.CharacteristicKind, component uint8, v float64) container.Characteristic {
	buf := make([]byte, 9)
	buf[0] = component
	binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v))
	return container.Characteristic{Kind: kind, Payload: buf}
}

func encodeHistogram(component uint8, h *stats.Histogram) container.Characteristic {
	var buf bytes.Buffer
	buf.WriteByte(component)
	binary.Write(&buf, binary.LittleEndian, uint32(len(h.Breaks)))
	for _, b := range h.Breaks {
		binary.Write(&buf, binary.LittleEndian, math.Float64bits(b))
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(h.Frequencies)))
	for _, f := range h.Frequencies {
		binary.Write(&buf, binary.LittleEndian, f)
	}
	return container.Characteristic{Kind: container.CharHist, Payload: buf.Bytes()}
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
