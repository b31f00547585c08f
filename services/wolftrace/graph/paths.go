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
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Path search limits.
const (
	// DefaultPathDepth is used when no positive depth is requested.
	DefaultPathDepth = 5

	// MaxPathDepth caps the requested depth.
	MaxPathDepth = 10

	// MaxPaths caps the number of paths returned by one search.
	MaxPaths = 1000

	// contextCheckInterval is how often to check context during traversal.
	contextCheckInterval = 100
)

// Path is one simple directed path.
type Path struct {
	// Nodes lists node ids from source to target.
	Nodes []string `json:"nodes"`

	// Edges holds the first connecting edge for each hop.
	Edges []Edge `json:"edges"`

	// Length is the number of edges.
	Length int `json:"length"`
}

// PathsResult is the outcome of FindPaths.
type PathsResult struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	MaxDepth int    `json:"max_depth"`
	Paths    []Path `json:"paths"`
	Count    int    `json:"count"`

	// Truncated is true if MaxPaths was reached or ctx was cancelled.
	Truncated bool `json:"truncated"`
}

// ClampPathDepth normalizes a requested path depth.
//
// If d <= 0, uses default (5).
// If d > 10, clamps to 10.
func ClampPathDepth(d int) int {
	switch {
	case d <= 0:
		return DefaultPathDepth
	case d > MaxPathDepth:
		return MaxPathDepth
	default:
		return d
	}
}

// FindPaths enumerates simple directed paths from source to target.
//
// Description:
//
//	Depth-first search following edges from source to target only. No
//	node repeats within a path and no path has more than maxDepth edges.
//	Parallel edges to the same successor are one hop. Edges pointing at
//	ids that are not nodes are never followed.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked periodically.
//	source, target - Endpoint ids.
//	maxDepth - Maximum edges per path, normalized by ClampPathDepth.
//
// Outputs:
//
//	*PathsResult - Never nil. Empty when either endpoint is missing or
//	source equals target.
func (s *Store) FindPaths(ctx context.Context, source, target string, maxDepth int) *PathsResult {
	maxDepth = ClampPathDepth(maxDepth)
	ctx, span := startAnalysisSpan(ctx, "FindPaths",
		attribute.String("graph.source", source),
		attribute.String("graph.target", target),
		attribute.Int("graph.max_depth", maxDepth),
	)
	defer span.End()
	start := time.Now()

	result := &PathsResult{
		Source:   source,
		Target:   target,
		MaxDepth: maxDepth,
		Paths:    []Path{},
	}
	if source == target || !s.HasNode(source) || !s.HasNode(target) {
		return result
	}

	onPath := map[string]bool{source: true}
	nodes := []string{source}
	var edges []Edge
	steps := 0

	var dfs func(current string) bool
	dfs = func(current string) bool {
		steps++
		if steps%contextCheckInterval == 0 && ctx.Err() != nil {
			result.Truncated = true
			return false
		}
		if len(edges) == maxDepth {
			return true
		}
		for _, e := range s.successors(current) {
			next := e.Target
			if onPath[next] {
				continue
			}
			if next == target {
				result.Paths = append(result.Paths, Path{
					Nodes:  append(append([]string(nil), nodes...), next),
					Edges:  cloneEdges(append(edges, *e)),
					Length: len(edges) + 1,
				})
				if len(result.Paths) >= MaxPaths {
					result.Truncated = true
					return false
				}
				continue
			}
			onPath[next] = true
			nodes = append(nodes, next)
			edges = append(edges, *e)
			ok := dfs(next)
			nodes = nodes[:len(nodes)-1]
			edges = edges[:len(edges)-1]
			delete(onPath, next)
			if !ok {
				return false
			}
		}
		return true
	}
	dfs(source)

	result.Count = len(result.Paths)
	span.SetAttributes(
		attribute.Int("graph.path_count", result.Count),
		attribute.Bool("graph.truncated", result.Truncated),
	)
	recordAnalysis(ctx, "paths", time.Since(start), result.Count)
	return result
}

// successors returns the first outgoing edge to each distinct successor
// that exists as a node, in insertion order.
func (s *Store) successors(id string) []*Edge {
	seen := make(map[string]bool)
	out := make([]*Edge, 0, len(s.outgoing[id]))
	for _, e := range s.outgoing[id] {
		if seen[e.Target] || !s.HasNode(e.Target) {
			continue
		}
		seen[e.Target] = true
		out = append(out, e)
	}
	return out
}

func cloneEdges(es []Edge) []Edge {
	out := make([]Edge, len(es))
	for i, e := range es {
		out[i] = e.Clone()
	}
	return out
}
