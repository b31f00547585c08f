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
	"container/heap"
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultMaxCommunities is used when no positive maximum is requested.
const DefaultMaxCommunities = 10

// Community is a group of node ids.
type Community struct {
	ID int `json:"id"`

	// Members lists node ids in store insertion order.
	Members []string `json:"members"`

	Size int `json:"size"`

	// Merged counts the components folded into this community to satisfy
	// the maximum.
	Merged int `json:"merged"`
}

// CommunityResult is the outcome of FindCommunities.
type CommunityResult struct {
	Communities    []Community `json:"communities"`
	Count          int         `json:"count"`
	ComponentCount int         `json:"component_count"`
	MaxCommunities int         `json:"max_communities"`
}

// unionFind is a disjoint-set over node positions with path compression
// and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(i, j int) {
	ri, rj := uf.find(i), uf.find(j)
	if ri == rj {
		return
	}
	switch {
	case uf.rank[ri] < uf.rank[rj]:
		uf.parent[ri] = rj
	case uf.rank[ri] > uf.rank[rj]:
		uf.parent[rj] = ri
	default:
		uf.parent[rj] = ri
		uf.rank[ri]++
	}
}

// group is a working community during merging.
type group struct {
	members []int // node positions, unordered until output
	order   int   // position of the first member
	merged  int
	alive   bool
}

// queued is a merge candidate. Entries go stale when their group grows or
// dies and are skipped on pop.
type queued struct {
	size  int
	group int
}

// mergeQueue pops the smallest group first, the latest created on ties.
type mergeQueue []queued

func (q mergeQueue) Len() int { return len(q) }
func (q mergeQueue) Less(i, j int) bool {
	if q[i].size != q[j].size {
		return q[i].size < q[j].size
	}
	return q[i].group > q[j].group
}
func (q mergeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *mergeQueue) Push(x any)   { *q = append(*q, x.(queued)) }
func (q *mergeQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

// FindCommunities partitions the graph into at most maxCommunities groups.
//
// Description:
//
//	Computes connected components over undirected adjacency, ignoring
//	dangling edges. While more than maxCommunities remain, the smallest
//	one (latest created on ties) is merged into a larger-or-equal
//	community. Components never share edges, so every candidate ties on
//	shared edge count and the earliest created one wins. Communities are
//	returned largest first, ties by insertion order.
//
//	Runs in O((n + m) log n) for n nodes and m edges.
//
// Inputs:
//
//	maxCommunities - Upper bound. <= 0 uses DefaultMaxCommunities.
func (s *Store) FindCommunities(ctx context.Context, maxCommunities int) *CommunityResult {
	if maxCommunities <= 0 {
		maxCommunities = DefaultMaxCommunities
	}
	ctx, span := startAnalysisSpan(ctx, "FindCommunities",
		attribute.Int("graph.max_communities", maxCommunities),
	)
	defer span.End()
	start := time.Now()

	uf := newUnionFind(len(s.nodes))
	for _, e := range s.edges {
		i, okSrc := s.nodeIndex[e.Source]
		j, okDst := s.nodeIndex[e.Target]
		if okSrc && okDst {
			uf.union(i, j)
		}
	}

	groups := make([]*group, 0)
	rootGroup := make(map[int]int)
	for i := range s.nodes {
		root := uf.find(i)
		gi, ok := rootGroup[root]
		if !ok {
			gi = len(groups)
			rootGroup[root] = gi
			groups = append(groups, &group{order: i, alive: true})
		}
		groups[gi].members = append(groups[gi].members, i)
	}
	componentCount := len(groups)

	if componentCount > maxCommunities {
		mergeSmallest(groups, maxCommunities)
	}

	var out []*group
	for _, g := range groups {
		if g.alive {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].members) != len(out[j].members) {
			return len(out[i].members) > len(out[j].members)
		}
		return out[i].order < out[j].order
	})

	result := &CommunityResult{
		Communities:    make([]Community, len(out)),
		Count:          len(out),
		ComponentCount: componentCount,
		MaxCommunities: maxCommunities,
	}
	for ci, g := range out {
		sort.Ints(g.members)
		members := make([]string, len(g.members))
		for k, pos := range g.members {
			members[k] = s.nodes[pos].ID
		}
		result.Communities[ci] = Community{
			ID:      ci,
			Members: members,
			Size:    len(members),
			Merged:  g.merged,
		}
	}

	span.SetAttributes(
		attribute.Int("graph.component_count", componentCount),
		attribute.Int("graph.community_count", result.Count),
	)
	recordAnalysis(ctx, "communities", time.Since(start), result.Count)
	return result
}

// mergeSmallest folds the smallest live group into the earliest other live
// group until at most limit remain.
func mergeSmallest(groups []*group, limit int) {
	// next and prev link live groups in creation order.
	next := make([]int, len(groups))
	prev := make([]int, len(groups))
	for gi := range groups {
		next[gi] = gi + 1
		prev[gi] = gi - 1
	}
	next[len(groups)-1] = -1
	head := 0
	unlink := func(gi int) {
		if prev[gi] >= 0 {
			next[prev[gi]] = next[gi]
		} else {
			head = next[gi]
		}
		if next[gi] >= 0 {
			prev[next[gi]] = prev[gi]
		}
	}

	q := make(mergeQueue, len(groups))
	for gi, g := range groups {
		q[gi] = queued{size: len(g.members), group: gi}
	}
	heap.Init(&q)

	for alive := len(groups); alive > limit; alive-- {
		var small int
		for {
			item := heap.Pop(&q).(queued)
			g := groups[item.group]
			if g.alive && len(g.members) == item.size {
				small = item.group
				break
			}
		}
		unlink(small)
		dst, src := groups[head], groups[small]
		dst.members = append(dst.members, src.members...)
		if src.order < dst.order {
			dst.order = src.order
		}
		dst.merged += src.merged + 1
		src.alive = false
		src.members = nil
		heap.Push(&q, queued{size: len(dst.members), group: head})
	}
}
