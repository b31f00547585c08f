// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

const pairTemplate = `
name: Pair
variables:
  - name: left
  - name: right
    default: beta
nodes:
  - id: "{{left}}"
    type: Host
    attributes:
      label: "left {{ left }}"
      tags: ["{{right}}", fixed]
  - id: "{{right}}"
edges:
  - source: "{{left}}"
    target: "{{right}}"
    attributes:
      weight: 3
`

func TestParse_FallbackID(t *testing.T) {
	tmpl, err := Parse([]byte(pairTemplate), "pair")
	require.NoError(t, err)
	assert.Equal(t, "pair", tmpl.ID)
	assert.Equal(t, "Pair", tmpl.Name)
	require.Len(t, tmpl.Variables, 2)
	assert.Nil(t, tmpl.Variables[0].Default)
	require.NotNil(t, tmpl.Variables[1].Default)
	assert.Equal(t, "beta", *tmpl.Variables[1].Default)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "nodes: [unterminated"},
		{"no nodes", "name: Empty\n"},
		{"no name", "nodes:\n  - id: a\n"},
		{"undeclared placeholder", "name: X\nnodes:\n  - id: \"{{ghost}}\"\n"},
		{"duplicate variable", "name: X\nvariables:\n  - name: a\n  - name: a\nnodes:\n  - id: n\n"},
		{"edge without target", "name: X\nnodes:\n  - id: a\nedges:\n  - source: a\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
			assert.ErrorIs(t, err, graph.ErrInvalidArgument)
		})
	}
}

func TestParse_InvalidID(t *testing.T) {
	_, err := Parse([]byte("id: ../escape\nname: X\nnodes:\n  - id: a\n"), "x")
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestRender_SubstitutesEverywhere(t *testing.T) {
	tmpl, err := Parse([]byte(pairTemplate), "pair")
	require.NoError(t, err)

	snap, err := tmpl.Render(map[string]string{"left": "alpha", "unused": "x"})
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 2)
	require.Len(t, snap.Edges, 1)

	left := snap.Nodes[0]
	assert.Equal(t, "alpha", left.ID)
	assert.Equal(t, "Host", left.Type)
	label, ok := left.Attributes.Get("label")
	require.True(t, ok)
	assert.True(t, label.Equal(graph.String("left alpha")))
	tags, ok := left.Attributes.Get("tags")
	require.True(t, ok)
	assert.True(t, tags.Equal(graph.List(graph.String("beta"), graph.String("fixed"))))

	assert.Equal(t, "beta", snap.Nodes[1].ID)
	assert.Equal(t, graph.DefaultNodeType, snap.Nodes[1].Type)

	edge := snap.Edges[0]
	assert.Equal(t, graph.EdgeKey{Source: "alpha", Target: "beta", Type: graph.DefaultEdgeType}, edge.Key())
	weight, ok := edge.Attributes.Get("weight")
	require.True(t, ok)
	assert.True(t, weight.Equal(graph.Number(3)))
}

func TestRender_OverrideDefault(t *testing.T) {
	tmpl, err := Parse([]byte(pairTemplate), "pair")
	require.NoError(t, err)

	snap, err := tmpl.Render(map[string]string{"left": "a", "right": "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", snap.Nodes[1].ID)
}

func TestRender_MissingRequired(t *testing.T) {
	tmpl, err := Parse([]byte(pairTemplate), "pair")
	require.NoError(t, err)

	_, err = tmpl.Render(nil)
	require.ErrorIs(t, err, ErrInvalidTemplate)
	assert.Contains(t, err.Error(), "left")
}

func TestRender_EmptyIDRejected(t *testing.T) {
	tmpl, err := Parse([]byte(pairTemplate), "pair")
	require.NoError(t, err)

	_, err = tmpl.Render(map[string]string{"left": ""})
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestMarshal_RoundTrip(t *testing.T) {
	tmpl, err := Parse([]byte(pairTemplate), "pair")
	require.NoError(t, err)

	data, err := tmpl.Marshal()
	require.NoError(t, err)
	again, err := Parse(data, "other")
	require.NoError(t, err)
	assert.Equal(t, "pair", again.ID)
	assert.Equal(t, tmpl.Summary(), again.Summary())
}
