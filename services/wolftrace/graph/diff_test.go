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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareGraphs_ChangedAttribute(t *testing.T) {
	a := Snapshot{Nodes: []Node{{ID: "n1", Type: "User", Attributes: Attrs("age", 30)}}}
	b := Snapshot{Nodes: []Node{{ID: "n1", Type: "User", Attributes: Attrs("age", 31)}}}

	c := CompareGraphs(a, b)
	require.Len(t, c.ChangedNodes, 1)
	assert.Equal(t, "n1", c.ChangedNodes[0].ID)
	assert.Equal(t, []string{"age"}, c.ChangedNodes[0].ChangedKeys)
	assert.False(t, c.ChangedNodes[0].TypeChanged)
	assert.Empty(t, c.AddedNodes)
	assert.Empty(t, c.RemovedNodes)
	assert.Equal(t, 1, c.Summary.ChangedNodes)
}

func TestCompareGraphs_Buckets(t *testing.T) {
	a := Snapshot{
		Nodes: []Node{
			{ID: "keep", Type: "Host", Attributes: Attrs("os", "linux")},
			{ID: "gone", Type: "Host"},
			{ID: "retype", Type: "Host"},
		},
		Edges: []Edge{
			{Source: "keep", Target: "gone", Type: "CONNECTS"},
			{Source: "keep", Target: "retype", Type: "CONNECTS", Attributes: Attrs("w", 1)},
		},
	}
	b := Snapshot{
		Nodes: []Node{
			{ID: "keep", Type: "Host", Attributes: Attrs("os", "linux")},
			{ID: "retype", Type: "Server"},
			{ID: "new", Type: "Host"},
		},
		Edges: []Edge{
			{Source: "keep", Target: "retype", Type: "CONNECTS", Attributes: Attrs("w", 2)},
			{Source: "keep", Target: "new", Type: "CONNECTS"},
		},
	}

	c := CompareGraphs(a, b)
	assert.Equal(t, []string{"new"}, ids(c.AddedNodes))
	assert.Equal(t, []string{"gone"}, ids(c.RemovedNodes))
	require.Len(t, c.ChangedNodes, 1)
	assert.True(t, c.ChangedNodes[0].TypeChanged)
	assert.Equal(t, []string{"keep"}, ids(c.UnchangedNodes))

	require.Len(t, c.AddedEdges, 1)
	assert.Equal(t, "new", c.AddedEdges[0].Target)
	require.Len(t, c.RemovedEdges, 1)
	assert.Equal(t, "gone", c.RemovedEdges[0].Target)
	require.Len(t, c.ChangedEdges, 1)
	assert.Equal(t, EdgeKey{Source: "keep", Target: "retype", Type: "CONNECTS"}, c.ChangedEdges[0].Key)
}

func TestCompareGraphs_Completeness(t *testing.T) {
	a := Snapshot{Nodes: []Node{{ID: "1"}, {ID: "2"}, {ID: "3", Attributes: Attrs("x", 1)}}}
	b := Snapshot{Nodes: []Node{{ID: "2"}, {ID: "3", Attributes: Attrs("x", 2)}, {ID: "4"}}}

	c := CompareGraphs(a, b)
	counts := map[string]int{}
	for _, n := range c.AddedNodes {
		counts[n.ID]++
	}
	for _, n := range c.RemovedNodes {
		counts[n.ID]++
	}
	for _, ch := range c.ChangedNodes {
		counts[ch.ID]++
	}
	for _, n := range c.UnchangedNodes {
		counts[n.ID]++
	}
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1, "4": 1}, counts)
}

func TestCompareGraphs_IdenticalIsEmpty(t *testing.T) {
	s := queryFixture().Snapshot()
	c := CompareGraphs(s, s.Clone())
	assert.Zero(t, c.Summary.AddedNodes+c.Summary.RemovedNodes+c.Summary.ChangedNodes)
	assert.Zero(t, c.Summary.AddedEdges+c.Summary.RemovedEdges+c.Summary.ChangedEdges)
	assert.Equal(t, 4, c.Summary.UnchangedNodes)
}

func TestCreateDiffGraph(t *testing.T) {
	a := Snapshot{Nodes: []Node{{ID: "old", Type: "Host"}, {ID: "same", Type: "Host"}}}
	b := Snapshot{
		Nodes: []Node{{ID: "same", Type: "Host"}, {ID: "fresh", Type: "Host"}},
		Edges: []Edge{{Source: "same", Target: "fresh", Type: "CONNECTS"}},
	}

	g := CreateDiffGraph(CompareGraphs(a, b))
	status := map[string]DiffStatus{}
	for _, n := range g.Nodes {
		status[n.Node.ID] = n.Status
	}
	assert.Equal(t, map[string]DiffStatus{
		"old":   StatusRemoved,
		"same":  StatusUnchanged,
		"fresh": StatusAdded,
	}, status)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, StatusAdded, g.Edges[0].Status)

	data, err := json.Marshal(g.Nodes[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"same","type":"Host","diff_status":"unchanged"}`, string(data))
}
