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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryFixture() *Store {
	s := NewStore()
	s.AddNode("alice", "User", Attrs("dept", "eng", "age", 30, "groups", []string{"admins"}))
	s.AddNode("bob", "User", Attrs("dept", "sales", "age", 41))
	s.AddNode("web", "Host", Attrs("os", "Linux"))
	s.AddNode("db", "Host", Attrs("os", "linux-lts"))
	s.AddEdge("alice", "web", "LOGGED_IN", nil)
	s.AddEdge("bob", "db", "LOGGED_IN", nil)
	s.AddEdge("web", "db", "CONNECTS", nil)
	return s
}

func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestQuery_Filters(t *testing.T) {
	s := queryFixture()
	ctx := context.Background()

	tests := []struct {
		name      string
		filters   Filters
		wantNodes []string
		wantEdges int
	}{
		{
			name:      "no filters",
			filters:   Filters{},
			wantNodes: []string{"alice", "bob", "web", "db"},
			wantEdges: 3,
		},
		{
			name:      "node type gates edges",
			filters:   Filters{NodeType: "User"},
			wantNodes: []string{"alice", "bob"},
			wantEdges: 2,
		},
		{
			name:      "equals",
			filters:   Filters{AttributeFilters: map[string]AttributeFilter{"dept": Equals("eng")}},
			wantNodes: []string{"alice"},
			wantEdges: 1,
		},
		{
			name:      "contains is case-insensitive",
			filters:   Filters{AttributeFilters: map[string]AttributeFilter{"os": Contains("LINUX")}},
			wantNodes: []string{"web", "db"},
			wantEdges: 3,
		},
		{
			name:      "contains on a list",
			filters:   Filters{AttributeFilters: map[string]AttributeFilter{"groups": Contains("admins")}},
			wantNodes: []string{"alice"},
			wantEdges: 1,
		},
		{
			name:      "in",
			filters:   Filters{AttributeFilters: map[string]AttributeFilter{"age": In(41, 99)}},
			wantNodes: []string{"bob"},
			wantEdges: 1,
		},
		{
			name:      "edge type narrows",
			filters:   Filters{NodeType: "Host", EdgeType: "CONNECTS"},
			wantNodes: []string{"web", "db"},
			wantEdges: 1,
		},
		{
			name:      "id pseudo attribute",
			filters:   Filters{AttributeFilters: map[string]AttributeFilter{"id": In("db", "nope")}},
			wantNodes: []string{"db"},
			wantEdges: 2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := s.Query(ctx, tc.filters)
			assert.Equal(t, tc.wantNodes, ids(result.Nodes))
			assert.Len(t, result.Edges, tc.wantEdges)
			assert.Equal(t, len(tc.wantNodes), result.TotalNodes)

			stats := s.QueryStatistics(ctx, tc.filters)
			assert.Equal(t, len(tc.wantNodes), stats.NodeCount)
			assert.Equal(t, tc.wantEdges, stats.EdgeCount)
		})
	}
}

func TestQuery_Pagination(t *testing.T) {
	s := queryFixture()
	ctx := context.Background()

	result := s.Query(ctx, Filters{Limit: 2, Offset: 1})
	assert.Equal(t, []string{"bob", "web"}, ids(result.Nodes))
	assert.Equal(t, 4, result.TotalNodes)
	assert.True(t, result.HasMore)

	result = s.Query(ctx, Filters{Limit: 2, Offset: 10})
	assert.Empty(t, result.Nodes)
	assert.Empty(t, result.Edges)
	assert.False(t, result.HasMore)

	result = s.Query(ctx, Filters{Limit: MaxQueryLimit * 10})
	assert.Equal(t, MaxQueryLimit, result.Limit)

	stats := s.QueryStatistics(ctx, Filters{Limit: 1})
	assert.Equal(t, 4, stats.NodeCount, "statistics ignore pagination")
	assert.Equal(t, map[string]int{"User": 2, "Host": 2}, stats.NodeTypes)
}

func TestAttributeFilter_UnmarshalJSON(t *testing.T) {
	var f Filters
	raw := `{"node_type":"User","attribute_filters":{"dept":"eng","name":{"op":"contains","value":"al"},"age":{"op":"in","values":[30,41]}},"limit":5}`
	require.NoError(t, json.Unmarshal([]byte(raw), &f))

	assert.Equal(t, OpEquals, f.AttributeFilters["dept"].Op)
	assert.Equal(t, OpContains, f.AttributeFilters["name"].Op)
	assert.Equal(t, OpIn, f.AttributeFilters["age"].Op)
	assert.Len(t, f.AttributeFilters["age"].Values, 2)
	assert.Equal(t, 5, f.Limit)

	err := json.Unmarshal([]byte(`{"attribute_filters":{"x":{"op":"regex","value":"."}}}`), &f)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPaginate(t *testing.T) {
	s := queryFixture()
	page := s.Paginate(2, 3, "")
	assert.Equal(t, []string{"db"}, ids(page.Nodes))
	assert.Equal(t, 4, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Len(t, page.Edges, 2)

	users := s.Paginate(0, 0, "User")
	assert.Equal(t, 1, users.Pagination.Page)
	assert.Equal(t, DefaultPerPage, users.Pagination.PerPage)
	assert.Len(t, users.Nodes, 2)

	past := s.Paginate(3, 3, "")
	assert.Empty(t, past.Nodes)
	assert.Empty(t, past.Edges)
	assert.Equal(t, 3, past.Pagination.Page)

	var huge *Page
	require.NotPanics(t, func() { huge = s.Paginate(math.MaxInt, 2, "") })
	assert.Empty(t, huge.Nodes)
	assert.Equal(t, 4, huge.Pagination.Total)
	assert.Equal(t, 2, huge.Pagination.TotalPages)

	empty := NewStore().Paginate(1, 10, "")
	assert.Empty(t, empty.Nodes)
	assert.Equal(t, 0, empty.Pagination.TotalPages)
}
