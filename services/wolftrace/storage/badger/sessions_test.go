// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

func newTestSessions(t *testing.T) *SessionStore {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSessionStore(db)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func sampleSnapshot() graph.Snapshot {
	s := graph.NewStore()
	s.AddNode("alice", "User", graph.Attrs("age", 30))
	s.AddNode("web", "Host", nil)
	s.AddEdge("alice", "web", "LOGGED_IN", graph.Attrs("at", "09:00"))
	return s.Snapshot()
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestOpen_Persistent(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.SyncWrites = false
	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestSessions_SaveLoad(t *testing.T) {
	store := newTestSessions(t)
	ctx := context.Background()
	snap := sampleSnapshot()

	summary, err := store.Save(ctx, "", snap, graph.Attrs("analyst", "kim"), "abc")
	require.NoError(t, err)
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, DefaultSessionName, summary.Name)
	assert.Equal(t, 2, summary.NodeCount)
	assert.Equal(t, 1, summary.EdgeCount)

	loaded, err := store.Load(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, loaded.ID)
	assert.Equal(t, "abc", loaded.Digest)
	analyst, ok := loaded.Metadata.Get("analyst")
	require.True(t, ok)
	assert.True(t, analyst.Equal(graph.String("kim")))

	c := graph.CompareGraphs(snap, loaded.Graph)
	assert.Equal(t, 2, c.Summary.UnchangedNodes)
	assert.Equal(t, 1, c.Summary.UnchangedEdges)
}

func TestSessions_ListNewestFirst(t *testing.T) {
	store := newTestSessions(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, name := range []string{"first", "second", "third"} {
		_, err := store.Save(ctx, name, sampleSnapshot(), nil, "")
		require.NoError(t, err)
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Name)
	assert.Equal(t, "first", all[2].Name)

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSessions_NotFound(t *testing.T) {
	store := newTestSessions(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrSessionNotFound)
}

func TestSessions_Delete(t *testing.T) {
	store := newTestSessions(t)
	ctx := context.Background()

	summary, err := store.Save(ctx, "doomed", sampleSnapshot(), nil, "")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, summary.ID))

	_, err = store.Load(ctx, summary.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSessions_CancelledContext(t *testing.T) {
	store := newTestSessions(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "x", sampleSnapshot(), nil, "")
	assert.ErrorIs(t, err, context.Canceled)
}
