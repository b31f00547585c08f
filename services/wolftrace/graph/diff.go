// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"bytes"
	"sort"
)

// DiffStatus tags an element of a diff graph.
type DiffStatus string

const (
	StatusAdded     DiffStatus = "added"
	StatusRemoved   DiffStatus = "removed"
	StatusChanged   DiffStatus = "changed"
	StatusUnchanged DiffStatus = "unchanged"
)

// diffStatusKey is the attribute carrying the status in diff graph JSON.
const diffStatusKey = "diff_status"

// NodeChange describes a node present in both graphs with different content.
type NodeChange struct {
	ID          string   `json:"id"`
	Before      Node     `json:"before"`
	After       Node     `json:"after"`
	TypeChanged bool     `json:"type_changed"`
	ChangedKeys []string `json:"changed_keys"`
}

// EdgeChange describes an edge present in both graphs with different
// attributes.
type EdgeChange struct {
	Key         EdgeKey  `json:"key"`
	Before      Edge     `json:"before"`
	After       Edge     `json:"after"`
	ChangedKeys []string `json:"changed_keys"`
}

// DiffSummary holds per-bucket counts.
type DiffSummary struct {
	AddedNodes     int `json:"added_nodes"`
	RemovedNodes   int `json:"removed_nodes"`
	ChangedNodes   int `json:"changed_nodes"`
	UnchangedNodes int `json:"unchanged_nodes"`
	AddedEdges     int `json:"added_edges"`
	RemovedEdges   int `json:"removed_edges"`
	ChangedEdges   int `json:"changed_edges"`
	UnchangedEdges int `json:"unchanged_edges"`
	Graph1Nodes    int `json:"graph1_nodes"`
	Graph2Nodes    int `json:"graph2_nodes"`
	Graph1Edges    int `json:"graph1_edges"`
	Graph2Edges    int `json:"graph2_edges"`
}

// Comparison is the structural difference from graph A to graph B.
type Comparison struct {
	AddedNodes     []Node       `json:"added_nodes"`
	RemovedNodes   []Node       `json:"removed_nodes"`
	ChangedNodes   []NodeChange `json:"changed_nodes"`
	UnchangedNodes []Node       `json:"unchanged_nodes"`
	AddedEdges     []Edge       `json:"added_edges"`
	RemovedEdges   []Edge       `json:"removed_edges"`
	ChangedEdges   []EdgeChange `json:"changed_edges"`
	UnchangedEdges []Edge       `json:"unchanged_edges"`
	Summary        DiffSummary  `json:"summary"`
}

// keyedNodes indexes nodes by id, last occurrence winning, and returns the
// ids in first-seen order.
func keyedNodes(nodes []Node) (map[string]Node, []string) {
	byID := make(map[string]Node, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, seen := byID[n.ID]; !seen {
			order = append(order, n.ID)
		}
		byID[n.ID] = n
	}
	return byID, order
}

func keyedEdges(edges []Edge) (map[EdgeKey]Edge, []EdgeKey) {
	byKey := make(map[EdgeKey]Edge, len(edges))
	order := make([]EdgeKey, 0, len(edges))
	for _, e := range edges {
		k := e.Key()
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = e
	}
	return byKey, order
}

// CompareGraphs computes the difference from a to b.
//
// Description:
//
//	Nodes are keyed by id; edges by (source, target, type). Duplicate keys
//	within one graph collapse to the last occurrence. A node is changed
//	when its type or attribute mapping differs; an edge when its
//	attributes differ. Added and changed entries follow b's order, removed
//	entries follow a's.
//
// Thread Safety: Pure function over its arguments.
func CompareGraphs(a, b Snapshot) *Comparison {
	c := &Comparison{
		AddedNodes:     []Node{},
		RemovedNodes:   []Node{},
		ChangedNodes:   []NodeChange{},
		UnchangedNodes: []Node{},
		AddedEdges:     []Edge{},
		RemovedEdges:   []Edge{},
		ChangedEdges:   []EdgeChange{},
		UnchangedEdges: []Edge{},
	}

	aNodes, aNodeOrder := keyedNodes(a.Nodes)
	bNodes, bNodeOrder := keyedNodes(b.Nodes)
	for _, id := range bNodeOrder {
		after := bNodes[id]
		before, ok := aNodes[id]
		switch {
		case !ok:
			c.AddedNodes = append(c.AddedNodes, after.Clone())
		case before.Type != after.Type || !before.Attributes.Equal(after.Attributes):
			c.ChangedNodes = append(c.ChangedNodes, NodeChange{
				ID:          id,
				Before:      before.Clone(),
				After:       after.Clone(),
				TypeChanged: before.Type != after.Type,
				ChangedKeys: changedKeys(before.Attributes, after.Attributes),
			})
		default:
			c.UnchangedNodes = append(c.UnchangedNodes, after.Clone())
		}
	}
	for _, id := range aNodeOrder {
		if _, ok := bNodes[id]; !ok {
			c.RemovedNodes = append(c.RemovedNodes, aNodes[id].Clone())
		}
	}

	aEdges, aEdgeOrder := keyedEdges(a.Edges)
	bEdges, bEdgeOrder := keyedEdges(b.Edges)
	for _, k := range bEdgeOrder {
		after := bEdges[k]
		before, ok := aEdges[k]
		switch {
		case !ok:
			c.AddedEdges = append(c.AddedEdges, after.Clone())
		case !before.Attributes.Equal(after.Attributes):
			c.ChangedEdges = append(c.ChangedEdges, EdgeChange{
				Key:         k,
				Before:      before.Clone(),
				After:       after.Clone(),
				ChangedKeys: changedKeys(before.Attributes, after.Attributes),
			})
		default:
			c.UnchangedEdges = append(c.UnchangedEdges, after.Clone())
		}
	}
	for _, k := range aEdgeOrder {
		if _, ok := bEdges[k]; !ok {
			c.RemovedEdges = append(c.RemovedEdges, aEdges[k].Clone())
		}
	}

	c.Summary = DiffSummary{
		AddedNodes:     len(c.AddedNodes),
		RemovedNodes:   len(c.RemovedNodes),
		ChangedNodes:   len(c.ChangedNodes),
		UnchangedNodes: len(c.UnchangedNodes),
		AddedEdges:     len(c.AddedEdges),
		RemovedEdges:   len(c.RemovedEdges),
		ChangedEdges:   len(c.ChangedEdges),
		UnchangedEdges: len(c.UnchangedEdges),
		Graph1Nodes:    len(aNodes),
		Graph2Nodes:    len(bNodes),
		Graph1Edges:    len(aEdges),
		Graph2Edges:    len(bEdges),
	}
	return c
}

// changedKeys lists attribute names added, removed or modified between a
// and b, sorted.
func changedKeys(a, b *Object) []string {
	keys := []string{}
	a.Range(func(k string, v Value) bool {
		if bv, ok := b.Get(k); !ok || !v.Equal(bv) {
			keys = append(keys, k)
		}
		return true
	})
	b.Range(func(k string, _ Value) bool {
		if _, ok := a.Get(k); !ok {
			keys = append(keys, k)
		}
		return true
	})
	sort.Strings(keys)
	return keys
}

// DiffNode is a node tagged with its diff status.
type DiffNode struct {
	Node   Node
	Status DiffStatus
}

// MarshalJSON renders the flat node shape with a "diff_status" member.
func (d DiffNode) MarshalJSON() ([]byte, error) {
	return withStatus(d.Node.MarshalJSON, d.Status)
}

// DiffEdge is an edge tagged with its diff status.
type DiffEdge struct {
	Edge   Edge
	Status DiffStatus
}

// MarshalJSON renders the flat edge shape with a "diff_status" member.
func (d DiffEdge) MarshalJSON() ([]byte, error) {
	return withStatus(d.Edge.MarshalJSON, d.Status)
}

func withStatus(marshal func() ([]byte, error), status DiffStatus) ([]byte, error) {
	data, err := marshal()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	buf.WriteString(`,"` + diffStatusKey + `":`)
	writeJSONString(&buf, string(status))
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DiffGraph is a single graph holding every element of both inputs, each
// tagged with its status.
type DiffGraph struct {
	Nodes   []DiffNode  `json:"nodes"`
	Edges   []DiffEdge  `json:"edges"`
	Summary DiffSummary `json:"summary"`
}

// CreateDiffGraph derives the tagged union graph from a comparison.
// Removed elements carry a's data, all others carry b's.
func CreateDiffGraph(c *Comparison) *DiffGraph {
	g := &DiffGraph{Nodes: []DiffNode{}, Edges: []DiffEdge{}, Summary: c.Summary}
	for _, n := range c.UnchangedNodes {
		g.Nodes = append(g.Nodes, DiffNode{Node: n.Clone(), Status: StatusUnchanged})
	}
	for _, ch := range c.ChangedNodes {
		g.Nodes = append(g.Nodes, DiffNode{Node: ch.After.Clone(), Status: StatusChanged})
	}
	for _, n := range c.AddedNodes {
		g.Nodes = append(g.Nodes, DiffNode{Node: n.Clone(), Status: StatusAdded})
	}
	for _, n := range c.RemovedNodes {
		g.Nodes = append(g.Nodes, DiffNode{Node: n.Clone(), Status: StatusRemoved})
	}
	for _, e := range c.UnchangedEdges {
		g.Edges = append(g.Edges, DiffEdge{Edge: e.Clone(), Status: StatusUnchanged})
	}
	for _, ch := range c.ChangedEdges {
		g.Edges = append(g.Edges, DiffEdge{Edge: ch.After.Clone(), Status: StatusChanged})
	}
	for _, e := range c.AddedEdges {
		g.Edges = append(g.Edges, DiffEdge{Edge: e.Clone(), Status: StatusAdded})
	}
	for _, e := range c.RemovedEdges {
		g.Edges = append(g.Edges, DiffEdge{Edge: e.Clone(), Status: StatusRemoved})
	}
	return g
}
