// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collector

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "edgelist", list[0].Name)
	assert.Equal(t, "generic", list[1].Name)

	_, err := r.Get("bloodhound")
	assert.ErrorIs(t, err, ErrUnknownCollector)

	c, err := r.Get("generic")
	require.NoError(t, err)
	assert.Equal(t, "generic", c.Name())
}

func TestGeneric_Parse(t *testing.T) {
	batch, err := Generic{}.Parse([]byte(`{
		"nodes": [{"id": "alice", "type": "User", "dept": "ops"}, {"id": 7}],
		"edges": [{"source_id": "alice", "target_id": "7", "type": "OWNS"}]
	}`))
	require.NoError(t, err)
	require.Len(t, batch.Nodes, 2)
	assert.Equal(t, "7", batch.Nodes[1].ID)
	assert.Equal(t, graph.DefaultNodeType, batch.Nodes[1].Type)
	require.Len(t, batch.Edges, 1)
	assert.Equal(t, "OWNS", batch.Edges[0].Type)
	assert.Empty(t, batch.Placeholders)
}

func TestGeneric_ParseInvalid(t *testing.T) {
	for _, input := range []string{``, `[]`, `{"nodes": [{"type": "User"}]}`, `{"nodes": 5}`, `{`} {
		_, err := Generic{}.Parse([]byte(input))
		assert.ErrorIs(t, err, graph.ErrInvalidArgument, "input %q", input)
	}
}

func TestEdgeList_ApplyKeepsKnownNodes(t *testing.T) {
	store := graph.NewStore()
	store.AddNode("a", "Host", graph.Attrs("os", "linux"))

	batch, err := EdgeList{}.Parse([]byte(`[
		{"source": "a", "target": "b", "type": "CONNECTS", "port": 22},
		{"source": "b", "target": "c"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, batch.Placeholders)

	nodes, edges := batch.Apply(store)
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 2, edges)

	a, ok := store.Node("a")
	require.True(t, ok)
	assert.Equal(t, "Host", a.Type)
	_, ok = a.Attributes.Get("os")
	assert.True(t, ok)

	c, ok := store.Node("c")
	require.True(t, ok)
	assert.Equal(t, graph.DefaultNodeType, c.Type)
	assert.Equal(t, graph.DefaultEdgeType, store.Edges("")[1].Type)
}

func TestEdgeList_ParseInvalid(t *testing.T) {
	for _, input := range []string{`{}`, `[{"source": "a"}]`, `[1]`} {
		_, err := EdgeList{}.Parse([]byte(input))
		assert.ErrorIs(t, err, graph.ErrInvalidArgument, "input %q", input)
	}
}

func buildZip(t *testing.T, files map[string]string, order ...string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range order {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return bytes.NewReader(buf.Bytes())
}

func TestMergeZip(t *testing.T) {
	files := map[string]string{
		"b_users.json": `{"nodes": [{"id": "u2", "type": "User"}], "meta": {"source": "ldap", "collected": "mon"}}`,
		"a_hosts.json": `{"nodes": [{"id": "h1", "type": "Host"}], "edges": [{"source": "u2", "target": "h1"}], "meta": {"version": 2, "collected": "tue"}}`,
		"broken.json":  `{"nodes": [`,
		"README.txt":   `not json`,
		"dir/c_x.JSON": `{"nodes": [{"id": "x"}]}`,
	}
	r := buildZip(t, files, "b_users.json", "a_hosts.json", "broken.json", "README.txt", "dir/c_x.JSON")

	result, err := MergeZip(r, r.Size())
	require.NoError(t, err)
	// Archive order, not name order.
	assert.Equal(t, []string{"b_users.json", "a_hosts.json", "dir/c_x.JSON"}, result.Files)
	assert.Equal(t, []string{"broken.json"}, result.Skipped)

	batch, err := Generic{}.Parse(result.Merged)
	require.NoError(t, err)
	require.Len(t, batch.Nodes, 3)
	assert.Equal(t, "u2", batch.Nodes[0].ID)
	assert.Equal(t, "h1", batch.Nodes[1].ID)
	assert.Equal(t, "x", batch.Nodes[2].ID)
	assert.Len(t, batch.Edges, 1)
	assert.Contains(t, string(result.Merged), `"meta":{"source":"ldap","collected":"tue","version":2}`)
}

func TestMergeZip_NoValidMembers(t *testing.T) {
	r := buildZip(t, map[string]string{"a.json": `nope`, "b.txt": `{}`}, "a.json", "b.txt")
	_, err := MergeZip(r, r.Size())
	assert.ErrorIs(t, err, graph.ErrInvalidArgument)
}

func TestMergeZip_NotAZip(t *testing.T) {
	r := bytes.NewReader([]byte("plain text"))
	_, err := MergeZip(r, r.Size())
	assert.ErrorIs(t, err, graph.ErrInvalidArgument)
}
