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
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeighbors_GroupsByHop(t *testing.T) {
	// a -> b -> c, d -> a, dangling a -> ghost
	s := buildStore(t, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"d", "a"})
	s.AddEdge("a", "ghost", "CONNECTS", nil)
	ctx := context.Background()

	n := s.Neighbors(ctx, "a", 2)
	require.True(t, n.Found)
	require.Len(t, n.Levels, 3)
	assert.Equal(t, []string{"a"}, n.Levels[0])
	assert.ElementsMatch(t, []string{"b", "d"}, n.Levels[1])
	assert.Equal(t, []string{"c"}, n.Levels[2])
	assert.Equal(t, 2, n.Distances["c"])
	assert.Len(t, n.Edges, 3)

	one := s.Neighbors(ctx, "a", 0)
	assert.Equal(t, 1, one.Depth)
	assert.Len(t, one.Levels, 2)
}

func TestNeighbors_Symmetric(t *testing.T) {
	s := buildStore(t, [2]string{"a", "b"}, [2]string{"c", "a"}, [2]string{"b", "c"})
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		for _, other := range s.Neighbors(ctx, id, 1).Levels[1] {
			assert.Contains(t, s.Neighbors(ctx, other, 1).Levels[1], id)
		}
	}
}

func TestNeighbors_UnknownNode(t *testing.T) {
	n := NewStore().Neighbors(context.Background(), "x", 1)
	assert.False(t, n.Found)
	assert.Empty(t, n.Levels)
	assert.Empty(t, n.Nodes)
}

func TestFindCommunities_Components(t *testing.T) {
	s := buildStore(t, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"x", "y"})
	s.AddNode("lonely", "Host", nil)

	result := s.FindCommunities(context.Background(), 10)
	require.Equal(t, 3, result.Count)
	assert.Equal(t, 3, result.ComponentCount)
	assert.Equal(t, []string{"a", "b", "c"}, result.Communities[0].Members)
	assert.Equal(t, []string{"x", "y"}, result.Communities[1].Members)
	assert.Equal(t, []string{"lonely"}, result.Communities[2].Members)
	for i, c := range result.Communities {
		assert.Equal(t, i, c.ID)
		assert.Equal(t, len(c.Members), c.Size)
	}
}

func TestFindCommunities_MergesSmallest(t *testing.T) {
	s := buildStore(t, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"x", "y"})
	s.AddNode("p", "Host", nil)
	s.AddNode("q", "Host", nil)

	result := s.FindCommunities(context.Background(), 2)
	require.Equal(t, 2, result.Count)
	assert.Equal(t, 4, result.ComponentCount)

	total := 0
	seen := map[string]bool{}
	for _, c := range result.Communities {
		total += c.Size
		for _, m := range c.Members {
			assert.False(t, seen[m])
			seen[m] = true
		}
	}
	assert.Equal(t, s.NodeCount(), total)

	// No edges cross components, so q and then p fold into the earliest
	// larger community.
	assert.Equal(t, []string{"a", "b", "c", "p", "q"}, result.Communities[0].Members)
	assert.Equal(t, 2, result.Communities[0].Merged)
	assert.Equal(t, []string{"x", "y"}, result.Communities[1].Members)
	assert.Equal(t, 0, result.Communities[1].Merged)
}

func TestFindCommunities_TiesMergeLatestIntoEarliest(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		s.AddNode(id, "Host", nil)
	}

	result := s.FindCommunities(context.Background(), 2)
	require.Equal(t, 2, result.Count)
	assert.Equal(t, []string{"a", "c", "d"}, result.Communities[0].Members)
	assert.Equal(t, 2, result.Communities[0].Merged)
	assert.Equal(t, []string{"b"}, result.Communities[1].Members)
}

func TestFindCommunities_ManyComponentsScale(t *testing.T) {
	const n = 50000
	s := NewStore()
	for i := 0; i < n; i++ {
		s.AddNode("h"+strconv.Itoa(i), "Host", nil)
	}
	s.AddEdge("h0", "h1", "LINK", nil)

	start := time.Now()
	result := s.FindCommunities(context.Background(), 10)
	elapsed := time.Since(start)

	require.Equal(t, 10, result.Count)
	assert.Equal(t, n-1, result.ComponentCount)
	total := 0
	for _, c := range result.Communities {
		total += c.Size
	}
	assert.Equal(t, n, total)
	assert.Less(t, elapsed, time.Second)
}

func TestFindCommunities_Defaults(t *testing.T) {
	s := NewStore()
	result := s.FindCommunities(context.Background(), 0)
	assert.Equal(t, DefaultMaxCommunities, result.MaxCommunities)
	assert.Empty(t, result.Communities)
}

func TestStatistics(t *testing.T) {
	s := buildStore(t, [2]string{"a", "b"}, [2]string{"a", "c"})
	s.AddNode("iso", "User", nil)
	s.AddEdge("a", "ghost", "CONNECTS", nil)

	stats := s.Statistics(context.Background())
	assert.Equal(t, 4, stats.NodeCount)
	assert.Equal(t, 3, stats.EdgeCount)
	assert.Equal(t, 1, stats.IsolatedNodes)
	assert.Equal(t, 1, stats.DanglingEdges)
	assert.Equal(t, 2, stats.ComponentCount)
	assert.Equal(t, map[string]int{"Host": 3, "User": 1}, stats.NodesByType)
	require.NotEmpty(t, stats.TopNodes)
	assert.Equal(t, "a", stats.TopNodes[0].ID)
	assert.Equal(t, 3, stats.TopNodes[0].OutDegree)
	assert.InDelta(t, 3.0/12.0, stats.Density, 1e-9)
}

func TestSearch(t *testing.T) {
	s := NewStore()
	s.AddNode("alice", "User", Attrs("email", "Alice@Corp.example"))
	s.AddNode("srv-1", "Host", Attrs("tags", []string{"prod", "web"}))
	s.AddNode("srv-2", "Host", Attrs("port", 443))
	ctx := context.Background()

	got, err := s.Search(ctx, "corp", "", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].ID)

	got, err = s.Search(ctx, "PROD", "Host", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "srv-1", got[0].ID)

	got, err = s.Search(ctx, "srv", "", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = s.Search(ctx, "  ", "", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
