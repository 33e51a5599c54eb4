// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package staging

import (
	"encoding/json"

	"github.com/adios-io/adios/pkg/container"
)

// VarInfo is one variable's wire summary inside a FileInfo message.
type VarInfo struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Dims []uint64 `json:"dims,omitempty"`
}

// FileInfo is the per-submission wire record §4.H specifies: fname,
// timestep, comm_rank, comm_size, nchunks, and the varinfo list. For
// sequential mode Vars holds every written variable and NChunks is 1; for
// parallel mode each message holds one variable's VarInfo and NChunks is
// the communicator-wide total variable count.
type FileInfo struct {
	FName    string    `json:"fname"`
	Timestep uint32    `json:"timestep"`
	CommRank uint32    `json:"comm_rank"`
	CommSize uint32    `json:"comm_size"`
	NChunks  uint32    `json:"nchunks"`
	Vars     []VarInfo `json:"vars"`
}

// Marshal encodes f into the JSON payload published to subscribers.
func (f FileInfo) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// UnmarshalFileInfo decodes a FileInfo message a subscriber received.
func UnmarshalFileInfo(data []byte) (FileInfo, error) {
	var f FileInfo
	err := json.Unmarshal(data, &f)
	return f, err
}

// varInfoFromRecord builds a VarInfo from one PG variable record,
// reordering its dimensions into column-major order when reverseDim is
// set — supplemented from original_source's ICEE transport (§4.H, "Dimension
// order").
func varInfoFromRecord(v container.VarRecord, reverseDim bool) VarInfo {
	dims := make([]uint64, len(v.Dims))
	for i, d := range v.Dims {
		dims[i] = d.Local
	}
	if reverseDim {
		for i, j := 0, len(dims)-1; i < j; i, j = i+1, j-1 {
			dims[i], dims[j] = dims[j], dims[i]
		}
	}
	return VarInfo{Name: v.Name, Type: v.Type.String(), Dims: dims}
}
