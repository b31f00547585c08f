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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

// Key prefixes. Summaries are stored uncompressed so listing never touches
// the graph payloads.
const (
	sessionPrefix = "session/"
	summaryPrefix = "session-meta/"
)

// DefaultSessionName is used when a session is saved without a name.
const DefaultSessionName = "Untitled Session"

// DefaultListLimit is the number of sessions listed when no limit is given.
const DefaultListLimit = 50

// ErrSessionNotFound indicates no session has the requested id.
var ErrSessionNotFound = errors.New("session not found")

// SessionSummary describes a saved session without its graph.
type SessionSummary struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"created_at"`
	Metadata  *graph.Object `json:"metadata"`
	NodeCount int           `json:"node_count"`
	EdgeCount int           `json:"edge_count"`
	Digest    string        `json:"digest,omitempty"`
}

// Session is a saved graph with its summary.
type Session struct {
	SessionSummary
	Graph graph.Snapshot `json:"graph"`
}

// SessionStore saves, lists, loads and deletes sessions.
//
// Thread Safety: Safe for concurrent use.
type SessionStore struct {
	db      *DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	now     func() time.Time
}

// NewSessionStore creates a store over db. The store does not own db.
func NewSessionStore(db *DB) (*SessionStore, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &SessionStore{db: db, encoder: enc, decoder: dec, now: time.Now}, nil
}

// Close releases the codecs.
func (s *SessionStore) Close() {
	s.encoder.Close()
	s.decoder.Close()
}

// Save stores a new session holding a copy of snap.
//
// Description:
//
//	Assigns a fresh uuid and creation time. An empty name becomes
//	DefaultSessionName and a nil metadata object becomes empty.
//
// Outputs:
//
//	SessionSummary - The stored summary.
//	error - Non-nil if ctx is done or the write fails.
func (s *SessionStore) Save(ctx context.Context, name string, snap graph.Snapshot, metadata *graph.Object, digest string) (SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return SessionSummary{}, err
	}
	if name == "" {
		name = DefaultSessionName
	}
	sess := Session{
		SessionSummary: SessionSummary{
			ID:        uuid.NewString(),
			Name:      name,
			CreatedAt: s.now().UTC(),
			Metadata:  metadata.Clone(),
			NodeCount: len(snap.Nodes),
			EdgeCount: len(snap.Edges),
			Digest:    digest,
		},
		Graph: snap,
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("encode session: %w", err)
	}
	summary, err := json.Marshal(sess.SessionSummary)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("encode session summary: %w", err)
	}
	compressed := s.encoder.EncodeAll(payload, nil)

	err = s.db.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(sessionPrefix+sess.ID), compressed); err != nil {
			return err
		}
		return txn.Set([]byte(summaryPrefix+sess.ID), summary)
	})
	if err != nil {
		return SessionSummary{}, fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return sess.SessionSummary, nil
}

// Load returns the session with the given id, or ErrSessionNotFound.
func (s *SessionStore) Load(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var compressed []byte
	err := s.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionPrefix + id))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	payload, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns up to limit summaries, newest first. limit <= 0 uses
// DefaultListLimit.
func (s *SessionStore) List(ctx context.Context, limit int) ([]SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	out := []SessionSummary{}
	err := s.db.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(summaryPrefix), PrefetchValues: true, PrefetchSize: 64})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var summary SessionSummary
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &summary)
			})
			if err != nil {
				return fmt.Errorf("decode summary %s: %w", it.Item().Key(), err)
			}
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a session, or returns ErrSessionNotFound.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(summaryPrefix + id)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(sessionPrefix + id)); err != nil {
			return err
		}
		return txn.Delete([]byte(summaryPrefix + id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
