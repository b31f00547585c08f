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
	"sort"
	"time"
)

// topDegreeCount is how many nodes Statistics lists by degree.
const topDegreeCount = 10

// DegreeEntry is a node with its degree.
type DegreeEntry struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Degree    int    `json:"degree"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// Statistics summarizes the whole graph.
type Statistics struct {
	NodeCount      int            `json:"node_count"`
	EdgeCount      int            `json:"edge_count"`
	NodesByType    map[string]int `json:"nodes_by_type"`
	EdgesByType    map[string]int `json:"edges_by_type"`
	Density        float64        `json:"density"`
	AverageDegree  float64        `json:"average_degree"`
	IsolatedNodes  int            `json:"isolated_nodes"`
	DanglingEdges  int            `json:"dangling_edges"`
	ComponentCount int            `json:"component_count"`
	TopNodes       []DegreeEntry  `json:"top_nodes"`
}

// Statistics computes whole-graph metrics.
//
// Density is E / (V * (V - 1)) for the directed graph and is 0 for fewer
// than two nodes. Degrees count every incident edge, including dangling
// ones.
func (s *Store) Statistics(ctx context.Context) *Statistics {
	ctx, span := startAnalysisSpan(ctx, "Statistics")
	defer span.End()
	start := time.Now()

	v, e := len(s.nodes), len(s.edges)
	stats := &Statistics{
		NodeCount:   v,
		EdgeCount:   e,
		NodesByType: s.NodeTypeCounts(),
		EdgesByType: s.EdgeTypeCounts(),
		TopNodes:    []DegreeEntry{},
	}
	if v > 1 {
		stats.Density = float64(e) / float64(v*(v-1))
	}
	if v > 0 {
		stats.AverageDegree = float64(2*e) / float64(v)
	}

	for _, edge := range s.edges {
		if !s.HasNode(edge.Source) || !s.HasNode(edge.Target) {
			stats.DanglingEdges++
		}
	}

	degrees := make([]DegreeEntry, 0, v)
	for _, n := range s.nodes {
		in, out := len(s.incoming[n.ID]), len(s.outgoing[n.ID])
		if len(s.neighbors(n.ID)) == 0 {
			stats.IsolatedNodes++
		}
		degrees = append(degrees, DegreeEntry{
			ID:        n.ID,
			Type:      n.Type,
			Degree:    in + out,
			InDegree:  in,
			OutDegree: out,
		})
	}
	sort.SliceStable(degrees, func(i, j int) bool {
		return degrees[i].Degree > degrees[j].Degree
	})
	if len(degrees) > topDegreeCount {
		degrees = degrees[:topDegreeCount]
	}
	stats.TopNodes = degrees
	stats.ComponentCount = s.FindCommunities(ctx, v+1).ComponentCount

	recordAnalysis(ctx, "statistics", time.Since(start), v)
	return stats
}
