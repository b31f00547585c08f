// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

func snapWith(ids ...string) graph.Snapshot {
	s := graph.NewStore()
	for _, id := range ids {
		s.AddNode(id, "Host", nil)
	}
	return s.Snapshot()
}

func nodeIDs(s graph.Snapshot) []string {
	out := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		out[i] = n.ID
	}
	return out
}

func TestStack_EmptyIsEmpty(t *testing.T) {
	s := NewStack(0)
	_, ok := s.Undo()
	assert.False(t, ok)
	_, ok = s.Redo()
	assert.False(t, ok)

	info := s.Info()
	assert.Equal(t, -1, info.CurrentPosition)
	assert.Equal(t, DefaultMaxDepth, info.MaxDepth)
	assert.False(t, info.CanUndo)
	assert.False(t, info.CanRedo)
}

func TestStack_UndoRedoRoundTrip(t *testing.T) {
	s := NewStack(10)
	s0, s1 := snapWith("a"), snapWith("a", "b")
	s.SaveState(s0, "initial")
	s.SaveState(s1, "add b")

	prev, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, nodeIDs(prev.Snapshot))
	assert.Equal(t, "initial", prev.Label)

	_, ok = s.Undo()
	assert.False(t, ok, "nothing precedes the first entry")

	next, ok := s.Redo()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, nodeIDs(next.Snapshot))
	assert.Equal(t, Digest(s1), next.Digest)

	_, ok = s.Redo()
	assert.False(t, ok)
}

func TestStack_SaveDiscardsRedoBranch(t *testing.T) {
	s := NewStack(10)
	s.SaveState(snapWith(), "s0")
	s.SaveState(snapWith("a"), "s1")
	s.SaveState(snapWith("a", "b"), "s2")

	_, ok := s.Undo()
	require.True(t, ok)
	s.SaveState(snapWith("c"), "s3")

	_, ok = s.Redo()
	assert.False(t, ok)

	info := s.Info()
	assert.Equal(t, 3, info.TotalEntries)
	assert.Equal(t, 2, info.CurrentPosition)
	assert.Equal(t, "s3", info.CurrentLabel)
	labels := []string{}
	for _, e := range info.Entries {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{"s0", "s1", "s3"}, labels)
}

func TestStack_EvictsOldest(t *testing.T) {
	s := NewStack(3)
	for i := 0; i < 5; i++ {
		s.SaveState(snapWith(fmt.Sprintf("n%d", i)), fmt.Sprintf("s%d", i))
	}

	info := s.Info()
	assert.Equal(t, 3, info.TotalEntries)
	assert.Equal(t, 2, info.CurrentPosition)
	assert.Equal(t, "s2", info.Entries[0].Label)

	_, ok := s.Undo()
	require.True(t, ok)
	oldest, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "s2", oldest.Label)
	_, ok = s.Undo()
	assert.False(t, ok)
}

func TestStack_SnapshotsAreCopies(t *testing.T) {
	s := NewStack(5)
	snap := snapWith("a")
	s.SaveState(snap, "s0")
	snap.Nodes[0].ID = "mutated"

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.Snapshot.Nodes[0].ID)

	cur.Snapshot.Nodes[0].ID = "again"
	cur2, _ := s.Current()
	assert.Equal(t, "a", cur2.Snapshot.Nodes[0].ID)
}

func TestStack_ClearAndClock(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewStack(5, WithClock(func() time.Time { return fixed }))
	entry := s.SaveState(snapWith("a"), "s0")
	assert.Equal(t, fixed, entry.Timestamp)

	s.Clear()
	assert.Equal(t, 0, s.Len())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestDigest_Deterministic(t *testing.T) {
	a, b := snapWith("x", "y"), snapWith("x", "y")
	assert.Equal(t, Digest(a), Digest(b))
	assert.Len(t, Digest(a), 64)
	assert.NotEqual(t, Digest(a), Digest(snapWith("y", "x")))
}
