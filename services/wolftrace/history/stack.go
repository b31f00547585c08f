// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history keeps a linear, bounded undo/redo log of graph snapshots.
package history

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
	"lukechampine.com/blake3"
)

// DefaultMaxDepth is the number of entries kept when none is configured.
const DefaultMaxDepth = 50

// Entry is one recorded graph state.
type Entry struct {
	Snapshot  graph.Snapshot `json:"snapshot"`
	Label     string         `json:"label"`
	Timestamp time.Time      `json:"timestamp"`

	// Digest is the hex BLAKE3-256 of the snapshot's JSON encoding.
	Digest string `json:"digest"`
}

// EntrySummary describes an entry without its snapshot.
type EntrySummary struct {
	Position  int       `json:"position"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
	Digest    string    `json:"digest"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
}

// Info describes the stack state.
type Info struct {
	CurrentPosition int            `json:"current_position"`
	TotalEntries    int            `json:"total_entries"`
	CanUndo         bool           `json:"can_undo"`
	CanRedo         bool           `json:"can_redo"`
	CurrentLabel    string         `json:"current_label,omitempty"`
	CurrentDigest   string         `json:"current_digest,omitempty"`
	MaxDepth        int            `json:"max_depth"`
	Entries         []EntrySummary `json:"entries"`
}

// Stack is a linear history with a cursor.
//
// # Description
//
// Entries are ordered oldest to newest and the cursor points at the
// current state. Saving a state drops everything after the cursor, so a
// new mutation after an undo discards the redo branch. When more than
// maxDepth entries exist the oldest are evicted.
//
// # Thread Safety
//
// NOT safe for concurrent use; caller must synchronize.
type Stack struct {
	entries  []Entry
	cursor   int // -1 when empty
	maxDepth int
	now      func() time.Time
}

// Option configures a Stack.
type Option func(*Stack)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Stack) {
		s.now = now
	}
}

// NewStack creates an empty stack.
//
// # Inputs
//
//   - maxDepth: Maximum retained entries. <= 0 uses DefaultMaxDepth.
func NewStack(maxDepth int, opts ...Option) *Stack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	s := &Stack{cursor: -1, maxDepth: maxDepth, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveState records snap as the new current state.
//
// # Description
//
// Truncates entries after the cursor, appends a deep copy of snap and
// evicts the oldest entries beyond the maximum depth.
//
// # Outputs
//
//   - Entry: The recorded entry.
func (s *Stack) SaveState(snap graph.Snapshot, label string) Entry {
	entry := Entry{
		Snapshot:  snap.Clone(),
		Label:     label,
		Timestamp: s.now(),
		Digest:    Digest(snap),
	}

	s.entries = append(s.entries[:s.cursor+1], entry)
	if overflow := len(s.entries) - s.maxDepth; overflow > 0 {
		clear(s.entries[:overflow])
		s.entries = s.entries[overflow:]
	}
	s.cursor = len(s.entries) - 1
	return cloneEntry(entry)
}

// Undo moves the cursor back one entry and returns the state it now points
// to. It returns false when nothing precedes the current state.
func (s *Stack) Undo() (Entry, bool) {
	if s.cursor <= 0 {
		return Entry{}, false
	}
	s.cursor--
	return cloneEntry(s.entries[s.cursor]), true
}

// Redo moves the cursor forward one entry and returns the state it now
// points to. It returns false when the cursor is at the newest entry.
func (s *Stack) Redo() (Entry, bool) {
	if s.cursor < 0 || s.cursor >= len(s.entries)-1 {
		return Entry{}, false
	}
	s.cursor++
	return cloneEntry(s.entries[s.cursor]), true
}

// Current returns the entry at the cursor.
func (s *Stack) Current() (Entry, bool) {
	if s.cursor < 0 {
		return Entry{}, false
	}
	return cloneEntry(s.entries[s.cursor]), true
}

// Info reports the cursor position and a summary of every entry.
func (s *Stack) Info() Info {
	info := Info{
		CurrentPosition: s.cursor,
		TotalEntries:    len(s.entries),
		CanUndo:         s.cursor > 0,
		CanRedo:         s.cursor >= 0 && s.cursor < len(s.entries)-1,
		MaxDepth:        s.maxDepth,
		Entries:         make([]EntrySummary, len(s.entries)),
	}
	if s.cursor >= 0 {
		info.CurrentLabel = s.entries[s.cursor].Label
		info.CurrentDigest = s.entries[s.cursor].Digest
	}
	for i, e := range s.entries {
		info.Entries[i] = EntrySummary{
			Position:  i,
			Label:     e.Label,
			Timestamp: e.Timestamp,
			Digest:    e.Digest,
			Nodes:     len(e.Snapshot.Nodes),
			Edges:     len(e.Snapshot.Edges),
		}
	}
	return info
}

// Clear removes every entry.
func (s *Stack) Clear() {
	clear(s.entries)
	s.entries = nil
	s.cursor = -1
}

// Len returns the number of entries.
func (s *Stack) Len() int { return len(s.entries) }

// Digest returns the hex BLAKE3-256 of snap's JSON encoding. Encoding is
// deterministic, so equal snapshots in equal order share a digest.
func Digest(snap graph.Snapshot) string {
	data, err := json.Marshal(snap)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func cloneEntry(e Entry) Entry {
	e.Snapshot = e.Snapshot.Clone()
	return e
}
