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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Query configuration limits.
const (
	// DefaultQueryLimit is the default maximum number of nodes per page.
	DefaultQueryLimit = 1000

	// MaxQueryLimit is the maximum allowed limit.
	MaxQueryLimit = 10000
)

// FilterOp is an attribute predicate.
type FilterOp string

const (
	OpEquals   FilterOp = "equals"
	OpContains FilterOp = "contains"
	OpIn       FilterOp = "in"
)

// AttributeFilter is one attribute predicate.
//
// In JSON a bare value means equality; {"op":"contains","value":..} and
// {"op":"in","values":[..]} select the other predicates.
type AttributeFilter struct {
	Op     FilterOp `json:"op"`
	Value  Value    `json:"value"`
	Values []Value  `json:"values,omitempty"`
}

// Equals returns an equality filter.
func Equals(v any) AttributeFilter { return AttributeFilter{Op: OpEquals, Value: ValueOf(v)} }

// Contains returns a substring or list-membership filter.
func Contains(v any) AttributeFilter { return AttributeFilter{Op: OpContains, Value: ValueOf(v)} }

// In returns a set-membership filter.
func In(vs ...any) AttributeFilter {
	values := make([]Value, len(vs))
	for i, v := range vs {
		values[i] = ValueOf(v)
	}
	return AttributeFilter{Op: OpIn, Values: values}
}

// UnmarshalJSON accepts either a bare value or an operator object.
func (f *AttributeFilter) UnmarshalJSON(data []byte) error {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	obj, isObj := v.AsObject()
	opVal, hasOp := obj.Get("op")
	if !isObj || !hasOp {
		*f = AttributeFilter{Op: OpEquals, Value: v}
		return nil
	}
	op, _ := opVal.AsString()
	switch FilterOp(op) {
	case OpEquals, OpContains:
		val, _ := obj.Get("value")
		*f = AttributeFilter{Op: FilterOp(op), Value: val}
	case OpIn:
		raw, _ := obj.Get("values")
		list, ok := raw.AsList()
		if !ok {
			return fmt.Errorf("%w: \"in\" filter needs a values list", ErrInvalidArgument)
		}
		*f = AttributeFilter{Op: OpIn, Values: list}
	default:
		return fmt.Errorf("%w: unknown filter op %q", ErrInvalidArgument, op)
	}
	return nil
}

// Match reports whether v satisfies the filter.
func (f AttributeFilter) Match(v Value) bool {
	switch f.Op {
	case OpContains:
		if list, ok := v.AsList(); ok {
			for _, e := range list {
				if e.Equal(f.Value) {
					return true
				}
			}
			return false
		}
		s, ok := v.AsString()
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(f.Value.Text()))
	case OpIn:
		for _, candidate := range f.Values {
			if v.Equal(candidate) {
				return true
			}
		}
		return false
	default:
		return v.Equal(f.Value)
	}
}

// Filters selects a subgraph.
type Filters struct {
	NodeType         string                     `json:"node_type,omitempty"`
	EdgeType         string                     `json:"edge_type,omitempty"`
	AttributeFilters map[string]AttributeFilter `json:"attribute_filters,omitempty"`
	Limit            int                        `json:"limit,omitempty"`
	Offset           int                        `json:"offset,omitempty"`
}

// normalized returns a copy with limit and offset clamped.
//
// If Limit <= 0, uses default (1000).
// If Limit > 10000, clamps to 10000.
func (f Filters) normalized() Filters {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultQueryLimit
	case f.Limit > MaxQueryLimit:
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// matchNode applies the node type and attribute filters.
func (f Filters) matchNode(n *Node) bool {
	if f.NodeType != "" && n.Type != f.NodeType {
		return false
	}
	for key, filter := range f.AttributeFilters {
		v, ok := n.Attr(key)
		if !ok || !filter.Match(v) {
			return false
		}
	}
	return true
}

// QueryResult is a filtered, paginated subgraph.
type QueryResult struct {
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
	TotalNodes int    `json:"total_nodes"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"has_more"`
}

// QueryStatistics summarizes a filtered subgraph without materializing it.
type QueryStatistics struct {
	NodeCount int            `json:"node_count"`
	EdgeCount int            `json:"edge_count"`
	NodeTypes map[string]int `json:"node_types"`
	EdgeTypes map[string]int `json:"edge_types"`
}

// Query runs filters over the store.
//
// Description:
//
//	Selects nodes matching NodeType and every attribute filter, pages them
//	with Offset and Limit, then keeps the edges touching a node on the
//	page. EdgeType narrows the edges further. Node filters always gate
//	edge inclusion.
func (s *Store) Query(ctx context.Context, filters Filters) *QueryResult {
	filters = filters.normalized()
	ctx, span := startAnalysisSpan(ctx, "Query",
		attribute.String("graph.node_type", filters.NodeType),
		attribute.String("graph.edge_type", filters.EdgeType),
		attribute.Int("graph.limit", filters.Limit),
	)
	defer span.End()
	start := time.Now()

	matched := s.matchingNodes(filters)
	result := &QueryResult{
		Nodes:      []Node{},
		Edges:      []Edge{},
		TotalNodes: len(matched),
		Offset:     filters.Offset,
		Limit:      filters.Limit,
	}

	page := paginate(matched, filters.Offset, filters.Limit)
	result.HasMore = filters.Offset+len(page) < len(matched)
	onPage := make(map[string]bool, len(page))
	for _, n := range page {
		onPage[n.ID] = true
		result.Nodes = append(result.Nodes, n.Clone())
	}
	for _, e := range s.gatedEdges(onPage, filters.EdgeType) {
		result.Edges = append(result.Edges, e.Clone())
	}

	recordAnalysis(ctx, "query", time.Since(start), len(result.Nodes))
	return result
}

// QueryStatistics returns counts for the filtered subgraph, ignoring
// pagination.
func (s *Store) QueryStatistics(ctx context.Context, filters Filters) *QueryStatistics {
	ctx, span := startAnalysisSpan(ctx, "QueryStatistics",
		attribute.String("graph.node_type", filters.NodeType),
		attribute.String("graph.edge_type", filters.EdgeType),
	)
	defer span.End()
	start := time.Now()

	stats := &QueryStatistics{
		NodeTypes: map[string]int{},
		EdgeTypes: map[string]int{},
	}
	selected := make(map[string]bool)
	for _, n := range s.matchingNodes(filters) {
		selected[n.ID] = true
		stats.NodeCount++
		stats.NodeTypes[n.Type]++
	}
	for _, e := range s.gatedEdges(selected, filters.EdgeType) {
		stats.EdgeCount++
		stats.EdgeTypes[e.Type]++
	}

	recordAnalysis(ctx, "query_stats", time.Since(start), stats.NodeCount)
	return stats
}

func (s *Store) matchingNodes(filters Filters) []*Node {
	src := s.nodes
	if filters.NodeType != "" {
		src = s.nodesByType[filters.NodeType]
	}
	out := make([]*Node, 0, len(src))
	for _, n := range src {
		if filters.matchNode(n) {
			out = append(out, n)
		}
	}
	return out
}

// gatedEdges returns edges with at least one endpoint in ids, optionally
// restricted to edgeType.
func (s *Store) gatedEdges(ids map[string]bool, edgeType string) []*Edge {
	src := s.edges
	if edgeType != "" {
		src = s.edgesByType[edgeType]
	}
	var out []*Edge
	for _, e := range src {
		if ids[e.Source] || ids[e.Target] {
			out = append(out, e)
		}
	}
	return out
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// Page is one page of the node list with the edges touching it.
type Page struct {
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
	Pagination struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}

// DefaultPerPage is the page size used when none is given.
const DefaultPerPage = 100

// Paginate returns page number page (from 1) of nodes of nodeType.
func (s *Store) Paginate(page, perPage int, nodeType string) *Page {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	} else if perPage > MaxQueryLimit {
		perPage = MaxQueryLimit
	}

	src := s.nodes
	if nodeType != "" {
		src = s.nodesByType[nodeType]
	}
	out := &Page{Nodes: []Node{}, Edges: []Edge{}}
	out.Pagination.Page = page
	out.Pagination.PerPage = perPage
	out.Pagination.Total = len(src)
	out.Pagination.TotalPages = (len(src) + perPage - 1) / perPage

	// Pages past the end are empty; checking against TotalPages first keeps
	// the offset from overflowing for huge page numbers.
	offset := len(src)
	if page-1 < out.Pagination.TotalPages {
		offset = (page - 1) * perPage
	}
	ids := make(map[string]bool)
	for _, n := range paginate(src, offset, perPage) {
		ids[n.ID] = true
		out.Nodes = append(out.Nodes, n.Clone())
	}
	for _, e := range s.gatedEdges(ids, "") {
		out.Edges = append(out.Edges, e.Clone())
	}
	return out
}
