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

// Neighborhood depth limits.
const (
	DefaultNeighborDepth = 1
	MaxNeighborDepth     = 10
)

// Neighborhood is the set of nodes reachable from a center within a hop
// budget, ignoring edge direction.
type Neighborhood struct {
	Center string `json:"center"`
	Depth  int    `json:"depth"`
	Found  bool   `json:"found"`

	// Levels groups ids by hop distance. Levels[0] holds the center.
	Levels [][]string `json:"levels"`

	// Distances maps every reached id to its hop distance.
	Distances map[string]int `json:"distances"`

	Nodes []Node `json:"nodes"`

	// Edges holds every edge whose endpoints were both reached.
	Edges []Edge `json:"edges"`
}

// Neighbors runs an undirected breadth-first search from nodeID.
//
// depth <= 0 uses DefaultNeighborDepth and values above MaxNeighborDepth
// are clamped. An unknown nodeID yields an empty neighborhood with Found
// set to false.
func (s *Store) Neighbors(ctx context.Context, nodeID string, depth int) *Neighborhood {
	if depth <= 0 {
		depth = DefaultNeighborDepth
	} else if depth > MaxNeighborDepth {
		depth = MaxNeighborDepth
	}
	ctx, span := startAnalysisSpan(ctx, "Neighbors",
		attribute.String("graph.node_id", nodeID),
		attribute.Int("graph.depth", depth),
	)
	defer span.End()
	start := time.Now()

	result := &Neighborhood{
		Center:    nodeID,
		Depth:     depth,
		Levels:    [][]string{},
		Distances: map[string]int{},
		Nodes:     []Node{},
		Edges:     []Edge{},
	}
	if !s.HasNode(nodeID) {
		return result
	}
	result.Found = true

	type queueItem struct {
		nodeID string
		depth  int
	}

	result.Distances[nodeID] = 0
	result.Levels = append(result.Levels, []string{nodeID})
	queue := []queueItem{{nodeID: nodeID, depth: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.depth >= depth {
			continue
		}
		for _, next := range s.neighbors(item.nodeID) {
			if _, seen := result.Distances[next]; seen {
				continue
			}
			d := item.depth + 1
			result.Distances[next] = d
			if len(result.Levels) <= d {
				result.Levels = append(result.Levels, []string{})
			}
			result.Levels[d] = append(result.Levels[d], next)
			queue = append(queue, queueItem{nodeID: next, depth: d})
		}
	}

	for _, level := range result.Levels {
		for _, id := range level {
			n, _ := s.Node(id)
			result.Nodes = append(result.Nodes, n)
		}
	}
	for _, e := range s.edges {
		_, srcIn := result.Distances[e.Source]
		_, dstIn := result.Distances[e.Target]
		if srcIn && dstIn {
			result.Edges = append(result.Edges, e.Clone())
		}
	}

	recordAnalysis(ctx, "neighbors", time.Since(start), len(result.Nodes))
	return result
}
