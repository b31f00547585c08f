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

import "sort"

// Store is the in-memory directed multigraph.
//
// Nodes are kept in insertion order and indexed by id and type. Edges are
// append-only and indexed by source, target and type. Deletions compact the
// underlying slices and rebuild the indices.
//
// Thread Safety: NOT safe for concurrent use.
type Store struct {
	nodes []*Node
	edges []*Edge

	// Secondary indexes
	nodeIndex   map[string]int     // id -> position in nodes
	nodesByType map[string][]*Node // type -> nodes
	edgesByType map[string][]*Edge // type -> edges
	outgoing    map[string][]*Edge // source id -> edges
	incoming    map[string][]*Edge // target id -> edges

	generation uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{}
	s.resetIndexes()
	return s
}

func (s *Store) resetIndexes() {
	s.nodeIndex = make(map[string]int, len(s.nodes))
	s.nodesByType = make(map[string][]*Node)
	s.edgesByType = make(map[string][]*Edge)
	s.outgoing = make(map[string][]*Edge)
	s.incoming = make(map[string][]*Edge)
}

// reindex rebuilds every index from the node and edge slices.
func (s *Store) reindex() {
	s.resetIndexes()
	for i, n := range s.nodes {
		s.nodeIndex[n.ID] = i
		s.nodesByType[n.Type] = append(s.nodesByType[n.Type], n)
	}
	for _, e := range s.edges {
		s.indexEdge(e)
	}
}

func (s *Store) indexEdge(e *Edge) {
	s.edgesByType[e.Type] = append(s.edgesByType[e.Type], e)
	s.outgoing[e.Source] = append(s.outgoing[e.Source], e)
	s.incoming[e.Target] = append(s.incoming[e.Target], e)
}

// AddNode inserts or replaces a node.
//
// Description:
//
//	If a node with the same id exists, its type and attributes are
//	replaced and it keeps its position. Otherwise the node is appended.
//	An empty type becomes DefaultNodeType. The reserved keys "id" and
//	"type" are dropped from attrs. attrs is copied, never retained.
//
// Outputs:
//
//	Node - A copy of the stored node.
func (s *Store) AddNode(id, nodeType string, attrs *Object) Node {
	if nodeType == "" {
		nodeType = DefaultNodeType
	}
	clean := stripReserved(attrs, nodeReservedKeys)
	s.generation++

	if pos, ok := s.nodeIndex[id]; ok {
		existing := s.nodes[pos]
		if existing.Type != nodeType {
			s.retype(pos, nodeType)
		}
		existing.Attributes = clean
		return existing.Clone()
	}

	n := &Node{ID: id, Type: nodeType, Attributes: clean}
	s.nodeIndex[id] = len(s.nodes)
	s.nodes = append(s.nodes, n)
	s.nodesByType[nodeType] = append(s.nodesByType[nodeType], n)
	return n.Clone()
}

// retype moves the node at pos to nodeType's index, keeping both per-type
// lists in store order.
func (s *Store) retype(pos int, nodeType string) {
	n := s.nodes[pos]
	byPos := func(list []*Node) int {
		return sort.Search(len(list), func(i int) bool { return s.nodeIndex[list[i].ID] >= pos })
	}

	from := s.nodesByType[n.Type]
	if i := byPos(from); i < len(from) && from[i] == n {
		from = append(from[:i], from[i+1:]...)
	}
	if len(from) == 0 {
		delete(s.nodesByType, n.Type)
	} else {
		s.nodesByType[n.Type] = from
	}

	to := s.nodesByType[nodeType]
	i := byPos(to)
	to = append(to, nil)
	copy(to[i+1:], to[i:])
	to[i] = n
	s.nodesByType[nodeType] = to
	n.Type = nodeType
}

// AddEdge appends a directed edge. Duplicates are kept and endpoints are not
// validated. An empty type becomes DefaultEdgeType.
func (s *Store) AddEdge(source, target, edgeType string, attrs *Object) Edge {
	if edgeType == "" {
		edgeType = DefaultEdgeType
	}
	e := &Edge{
		Source:     source,
		Target:     target,
		Type:       edgeType,
		Attributes: stripReserved(attrs, edgeReservedKeys),
	}
	s.generation++
	s.edges = append(s.edges, e)
	s.indexEdge(e)
	return e.Clone()
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (Node, bool) {
	pos, ok := s.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[pos].Clone(), true
}

// HasNode reports whether id is a node in the store.
func (s *Store) HasNode(id string) bool {
	_, ok := s.nodeIndex[id]
	return ok
}

// Nodes returns copies of all nodes in insertion order. A non-empty
// nodeType restricts the result to that type.
func (s *Store) Nodes(nodeType string) []Node {
	src := s.nodes
	if nodeType != "" {
		src = s.nodesByType[nodeType]
	}
	out := make([]Node, len(src))
	for i, n := range src {
		out[i] = n.Clone()
	}
	return out
}

// Edges returns copies of all edges in insertion order. A non-empty
// edgeType restricts the result to that type.
func (s *Store) Edges(edgeType string) []Edge {
	src := s.edges
	if edgeType != "" {
		src = s.edgesByType[edgeType]
	}
	out := make([]Edge, len(src))
	for i, e := range src {
		out[i] = e.Clone()
	}
	return out
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int { return len(s.edges) }

// NodeTypeCounts returns the number of nodes per type.
func (s *Store) NodeTypeCounts() map[string]int {
	out := make(map[string]int, len(s.nodesByType))
	for t, ns := range s.nodesByType {
		out[t] = len(ns)
	}
	return out
}

// EdgeTypeCounts returns the number of edges per type.
func (s *Store) EdgeTypeCounts() map[string]int {
	out := make(map[string]int, len(s.edgesByType))
	for t, es := range s.edgesByType {
		out[t] = len(es)
	}
	return out
}

// Generation returns a counter that changes on every mutation. Two equal
// generations from the same store imply identical contents.
func (s *Store) Generation() uint64 { return s.generation }

// Clear removes every node and edge. Clearing an empty store is a no-op
// apart from bumping the generation.
func (s *Store) Clear() {
	s.nodes = nil
	s.edges = nil
	s.generation++
	s.resetIndexes()
}

// Snapshot returns a deep copy of the whole graph.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Nodes: s.Nodes(""), Edges: s.Edges("")}
}

// Restore replaces the store contents with snap. The snapshot is copied.
func (s *Store) Restore(snap Snapshot) {
	s.Clear()
	for _, n := range snap.Nodes {
		s.AddNode(n.ID, n.Type, n.Attributes)
	}
	for _, e := range snap.Edges {
		s.AddEdge(e.Source, e.Target, e.Type, e.Attributes)
	}
}

// Merge upserts every node and appends every edge of snap.
func (s *Store) Merge(snap Snapshot) (nodes, edges int) {
	for _, n := range snap.Nodes {
		s.AddNode(n.ID, n.Type, n.Attributes)
	}
	for _, e := range snap.Edges {
		s.AddEdge(e.Source, e.Target, e.Type, e.Attributes)
	}
	return len(snap.Nodes), len(snap.Edges)
}

// neighbors returns the distinct ids adjacent to id in either direction, in
// edge insertion order, skipping endpoints that are not nodes.
func (s *Store) neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(other string) {
		if other == id || seen[other] || !s.HasNode(other) {
			return
		}
		seen[other] = true
		out = append(out, other)
	}
	for _, e := range s.outgoing[id] {
		add(e.Target)
	}
	for _, e := range s.incoming[id] {
		add(e.Source)
	}
	return out
}

// degree returns the number of edges incident to id.
func (s *Store) degree(id string) int {
	return len(s.outgoing[id]) + len(s.incoming[id])
}

// removeNode deletes a node and its incident edges without reindexing.
// It returns the number of edges dropped.
func (s *Store) removeNode(id string) (int, bool) {
	pos, ok := s.nodeIndex[id]
	if !ok {
		return 0, false
	}
	s.nodes = append(s.nodes[:pos], s.nodes[pos+1:]...)
	removed := s.filterEdges(func(e *Edge) bool {
		return e.Source == id || e.Target == id
	})
	s.generation++
	s.reindex()
	return removed, true
}

// filterEdges drops every edge for which drop returns true and returns how
// many were removed. Indexes must be rebuilt by the caller.
func (s *Store) filterEdges(drop func(*Edge) bool) int {
	kept := s.edges[:0]
	removed := 0
	for _, e := range s.edges {
		if drop(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.edges); i++ {
		s.edges[i] = nil
	}
	s.edges = kept
	return removed
}

// removeEdges deletes matching edges and reindexes when anything changed.
func (s *Store) removeEdges(drop func(*Edge) bool) int {
	removed := s.filterEdges(drop)
	if removed > 0 {
		s.generation++
		s.reindex()
	}
	return removed
}

// nodeRef returns the stored node for in-place edits.
func (s *Store) nodeRef(id string) (*Node, bool) {
	pos, ok := s.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return s.nodes[pos], true
}
