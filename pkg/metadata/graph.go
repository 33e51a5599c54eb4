// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metadata

import "github.com/adios-io/adios/pkg/adioserr"

// Graph is the top-level collection of declared groups for one library
// instance. Replaces the original implementation's intrusive linked list of
// groups/vars/attrs/methods (see the redesign notes) with an append-only
// slice plus byID/byName hash indexes, generalizing the same
// double-indexed lookup pkg/metricstore's Level tree uses for its
// hierarchical selector paths.
type Graph struct {
	groups      []*Group
	groupByID   map[uint32]*Group
	groupByName map[string]*Group
	nextID      uint32
}

// NewGraph returns an empty metadata graph, ready for declare_group calls.
func NewGraph() *Graph {
	return &Graph{
		groupByID:   make(map[uint32]*Group),
		groupByName: make(map[string]*Group),
	}
}

// DeclareGroup creates a new, empty group. name must be unique within the
// graph's lifetime.
func (gr *Graph) DeclareGroup(name, timeIndexName string, statsFlag bool) (*Group, error) {
	if name == "" {
		return nil, adioserr.Set(adioserr.InvalidGroup, "group name must not be empty")
	}
	if _, exists := gr.groupByName[name]; exists {
		return nil, adioserr.Set(adioserr.DuplicateName, "group %q already declared", name)
	}

	g := newGroup(gr.nextID, name, timeIndexName, statsFlag)
	gr.nextID++

	gr.groups = append(gr.groups, g)
	gr.groupByID[g.ID] = g
	gr.groupByName[name] = g
	return g, nil
}

// FindGroupByName looks up a declared group by name.
func (gr *Graph) FindGroupByName(name string) (*Group, bool) {
	g, ok := gr.groupByName[name]
	return g, ok
}

// FindGroupByID looks up a declared group by its stable id.
func (gr *Graph) FindGroupByID(id uint32) (*Group, bool) {
	g, ok := gr.groupByID[id]
	return g, ok
}

// Groups returns all declared groups in declaration order.
func (gr *Graph) Groups() []*Group {
	out := make([]*Group, len(gr.groups))
	copy(out, gr.groups)
	return out
}
