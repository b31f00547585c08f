// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package wolftrace provides the WolfTrace graph service and its HTTP API.
//
// The service exposes endpoints for:
//   - Importing collected security data through named collectors
//   - Path, neighborhood, community and statistics analytics
//   - Attribute-filtered queries and graph-to-graph comparison
//   - Bulk edits, templates and saved sessions
//   - Snapshot-based undo and redo
//
// Every mutation runs inside one write-locked section that changes the
// store and records the resulting snapshot in history, so an undo always
// returns to a state that was observable.
package wolftrace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/wolftrace/wolftrace/pkg/validation"
	"github.com/wolftrace/wolftrace/services/wolftrace/collector"
	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
	"github.com/wolftrace/wolftrace/services/wolftrace/history"
	"github.com/wolftrace/wolftrace/services/wolftrace/storage/badger"
	"github.com/wolftrace/wolftrace/services/wolftrace/templates"
)

// ServiceVersion is the WolfTrace service version.
const ServiceVersion = "1.0.0"

// History labels recorded by the service itself.
const (
	labelInitial        = "Initial state"
	labelHistoryCleared = "History cleared"
)

var tracer = otel.Tracer("wolftrace.service")

// ServiceConfig configures the service.
type ServiceConfig struct {
	// HistoryDepth is the number of snapshots kept for undo.
	// Default: 50
	HistoryDepth int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{HistoryDepth: history.DefaultMaxDepth}
}

// SessionStore persists named graph snapshots.
//
// The BadgerDB store in storage/badger implements it.
type SessionStore interface {
	Save(ctx context.Context, name string, snap graph.Snapshot, metadata *graph.Object, digest string) (badger.SessionSummary, error)
	Load(ctx context.Context, id string) (*badger.Session, error)
	List(ctx context.Context, limit int) ([]badger.SessionSummary, error)
	Delete(ctx context.Context, id string) error
}

// Dependencies are the collaborators injected into the service. Nil
// fields get defaults: built-in collectors, built-in templates, a private
// event hub and slog.Default. A nil Sessions disables session endpoints.
type Dependencies struct {
	Sessions   SessionStore
	Templates  *templates.Registry
	Collectors *collector.Registry
	Events     *EventHub
	Logger     *slog.Logger
}

// Service is the WolfTrace graph service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. A single RWMutex guards the store
//	and the history together; reads share the lock and mutations hold it
//	exclusively for the whole mutate-then-snapshot sequence.
type Service struct {
	config ServiceConfig

	mu      sync.RWMutex
	store   *graph.Store
	history *history.Stack

	sessions   SessionStore
	templates  *templates.Registry
	collectors *collector.Registry
	events     *EventHub
	logger     *slog.Logger

	// analytics deduplicates concurrent identical expensive reads
	analytics singleflight.Group

	now func() time.Time
}

// NewService creates a service with an empty graph.
//
// Description:
//
//	The history is seeded with the empty graph as "Initial state" so the
//	first mutation can be undone.
//
// Inputs:
//
//	config - Service configuration
//	deps - Injected collaborators
//
// Outputs:
//
//	*Service - The configured service
func NewService(config ServiceConfig, deps Dependencies) *Service {
	if config.HistoryDepth <= 0 {
		config.HistoryDepth = history.DefaultMaxDepth
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		config:     config,
		store:      graph.NewStore(),
		history:    history.NewStack(config.HistoryDepth),
		sessions:   deps.Sessions,
		templates:  deps.Templates,
		collectors: deps.Collectors,
		events:     deps.Events,
		logger:     logger,
		now:        time.Now,
	}
	if s.collectors == nil {
		s.collectors = collector.DefaultRegistry()
	}
	if s.templates == nil {
		reg, err := templates.NewRegistry("", logger)
		if err != nil {
			logger.Error("Failed to load built-in templates", "error", err)
		}
		s.templates = reg
	}
	if s.events == nil {
		s.events = NewEventHub(logger)
	}

	s.history.SaveState(s.store.Snapshot(), labelInitial)
	historyEntries.Set(float64(s.history.Len()))
	return s
}

// Events returns the hub that receives change notifications.
func (s *Service) Events() *EventHub { return s.events }

// =============================================================================
// Mutation plumbing
// =============================================================================

// HistoryState is the cursor position after an operation.
type HistoryState struct {
	Position     int  `json:"position"`
	TotalEntries int  `json:"total_entries"`
	CanUndo      bool `json:"can_undo"`
	CanRedo      bool `json:"can_redo"`
}

// MutationResult describes the graph after a mutation.
type MutationResult struct {
	Label     string       `json:"label"`
	NodeCount int          `json:"node_count"`
	EdgeCount int          `json:"edge_count"`
	History   HistoryState `json:"history"`
}

// mutate runs fn under the write lock and records the resulting snapshot.
//
// fn must leave the store untouched when it returns an error; no history
// entry is recorded in that case.
func (s *Service) mutate(ctx context.Context, op, label string, fn func(*graph.Store) error) (MutationResult, error) {
	_, span := tracer.Start(ctx, "wolftrace.Service."+op)
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	if err := fn(s.store); err != nil {
		s.mu.Unlock()
		mutationTotal.WithLabelValues(op, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return MutationResult{}, err
	}
	s.history.SaveState(s.store.Snapshot(), label)
	result := s.resultLocked(label)
	s.mu.Unlock()

	mutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	mutationTotal.WithLabelValues(op, "ok").Inc()
	span.SetAttributes(
		attribute.Int("graph.nodes", result.NodeCount),
		attribute.Int("graph.edges", result.EdgeCount),
	)
	s.publish(EventGraphChanged, result)
	s.logger.Debug("Graph mutated", "operation", op, "label", label,
		"nodes", result.NodeCount, "edges", result.EdgeCount)
	return result, nil
}

// resultLocked summarizes the current state. Caller holds s.mu.
func (s *Service) resultLocked(label string) MutationResult {
	info := s.history.Info()
	nodes, edges := s.store.NodeCount(), s.store.EdgeCount()
	graphNodes.Set(float64(nodes))
	graphEdges.Set(float64(edges))
	historyEntries.Set(float64(info.TotalEntries))
	return MutationResult{
		Label:     label,
		NodeCount: nodes,
		EdgeCount: edges,
		History: HistoryState{
			Position:     info.CurrentPosition,
			TotalEntries: info.TotalEntries,
			CanUndo:      info.CanUndo,
			CanRedo:      info.CanRedo,
		},
	}
}

func (s *Service) publish(kind string, r MutationResult) {
	s.events.Broadcast(Event{
		Kind:      kind,
		Label:     r.Label,
		NodeCount: r.NodeCount,
		EdgeCount: r.EdgeCount,
		Position:  r.History.Position,
		Timestamp: s.now().UTC(),
	})
}

// =============================================================================
// Mutating entry points
// =============================================================================

// AddNode upserts a single node.
func (s *Service) AddNode(ctx context.Context, id, nodeType string, attrs *graph.Object) (graph.Node, MutationResult, error) {
	if id == "" {
		return graph.Node{}, MutationResult{}, fmt.Errorf("%w: node id is required", ErrInvalidArgument)
	}
	var node graph.Node
	result, err := s.mutate(ctx, "add_node", "Add node: "+id, func(st *graph.Store) error {
		node = st.AddNode(id, nodeType, attrs)
		return nil
	})
	return node, result, err
}

// AddEdge appends a single edge. Endpoints need not exist.
func (s *Service) AddEdge(ctx context.Context, source, target, edgeType string, attrs *graph.Object) (graph.Edge, MutationResult, error) {
	if source == "" || target == "" {
		return graph.Edge{}, MutationResult{}, fmt.Errorf("%w: edge source and target are required", ErrInvalidArgument)
	}
	var edge graph.Edge
	label := fmt.Sprintf("Add edge: %s -> %s", source, target)
	result, err := s.mutate(ctx, "add_edge", label, func(st *graph.Store) error {
		edge = st.AddEdge(source, target, edgeType, attrs)
		return nil
	})
	return edge, result, err
}

// ImportResult reports what an import wrote.
type ImportResult struct {
	Collector     string         `json:"collector"`
	NodesImported int            `json:"nodes_imported"`
	EdgesImported int            `json:"edges_imported"`
	Files         []string       `json:"files,omitempty"`
	Skipped       []string       `json:"skipped,omitempty"`
	Mutation      MutationResult `json:"mutation"`
}

// Import decodes data with the named collector and merges the records.
//
// Errors:
//
//	ErrNotFound - No collector has that name
//	ErrInvalidArgument - The collector could not decode data
func (s *Service) Import(ctx context.Context, collectorName string, data []byte) (*ImportResult, error) {
	batch, err := s.parse(collectorName, data)
	if err != nil {
		return nil, err
	}
	return s.applyBatch(ctx, "import", "Import data via "+collectorName, collectorName, batch)
}

// ImportZip merges every JSON member of a zip archive and imports the
// merged document with the named collector.
func (s *Service) ImportZip(ctx context.Context, collectorName string, r io.ReaderAt, size int64) (*ImportResult, error) {
	if _, err := s.collectors.Get(collectorName); err != nil {
		return nil, translate(err)
	}
	merged, err := collector.MergeZip(r, size)
	if err != nil {
		return nil, err
	}
	batch, err := s.parse(collectorName, merged.Merged)
	if err != nil {
		return nil, err
	}
	result, err := s.applyBatch(ctx, "import_zip", "Import ZIP via "+collectorName, collectorName, batch)
	if err != nil {
		return nil, err
	}
	result.Files = merged.Files
	result.Skipped = merged.Skipped
	return result, nil
}

func (s *Service) parse(collectorName string, data []byte) (*collector.Batch, error) {
	c, err := s.collectors.Get(collectorName)
	if err != nil {
		return nil, translate(err)
	}
	batch, err := c.Parse(data)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *Service) applyBatch(ctx context.Context, op, label, collectorName string, batch *collector.Batch) (*ImportResult, error) {
	out := &ImportResult{Collector: collectorName}
	result, err := s.mutate(ctx, op, label, func(st *graph.Store) error {
		out.NodesImported, out.EdgesImported = batch.Apply(st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Mutation = result
	s.logger.Info("Imported data", "collector", collectorName,
		"nodes", out.NodesImported, "edges", out.EdgesImported)
	return out, nil
}

// Collectors lists the registered collectors.
func (s *Service) Collectors() []collector.Info {
	return s.collectors.List()
}

// Clear removes every node and edge. The cleared state is undoable.
func (s *Service) Clear(ctx context.Context) (MutationResult, error) {
	return s.mutate(ctx, "clear", "Clear graph", func(st *graph.Store) error {
		st.Clear()
		return nil
	})
}

// BulkOutcome is a bulk result plus the resulting graph state.
type BulkOutcome struct {
	*graph.BulkResult
	Mutation MutationResult `json:"mutation"`
}

// BulkDeleteNodes removes nodes and their incident edges.
func (s *Service) BulkDeleteNodes(ctx context.Context, ids []string) (*BulkOutcome, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: node_ids array is required", ErrInvalidArgument)
	}
	return s.bulk(ctx, "bulk_delete_nodes", fmt.Sprintf("Bulk delete %d nodes", len(ids)),
		func(b *graph.BulkMutator) (*graph.BulkResult, error) { return b.DeleteNodes(ids), nil })
}

// BulkDeleteEdges removes every edge matching each spec.
func (s *Service) BulkDeleteEdges(ctx context.Context, specs []graph.EdgeSpec) (*BulkOutcome, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: edges array is required", ErrInvalidArgument)
	}
	return s.bulk(ctx, "bulk_delete_edges", fmt.Sprintf("Bulk delete %d edge specs", len(specs)),
		func(b *graph.BulkMutator) (*graph.BulkResult, error) { return b.DeleteEdges(specs), nil })
}

// BulkUpdateNodes applies attribute and type updates.
func (s *Service) BulkUpdateNodes(ctx context.Context, updates []graph.NodeUpdate) (*BulkOutcome, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: updates array is required", ErrInvalidArgument)
	}
	return s.bulk(ctx, "bulk_update_nodes", fmt.Sprintf("Bulk update %d nodes", len(updates)),
		func(b *graph.BulkMutator) (*graph.BulkResult, error) { return b.UpdateNodes(updates), nil })
}

// BulkTagNodes edits the tags attribute of each node.
func (s *Service) BulkTagNodes(ctx context.Context, ids, tags []string, mode graph.TagMode) (*BulkOutcome, error) {
	if len(ids) == 0 || len(tags) == 0 {
		return nil, fmt.Errorf("%w: node_ids and tags are required", ErrInvalidArgument)
	}
	if mode == "" {
		mode = graph.TagAdd
	}
	return s.bulk(ctx, "bulk_tag_nodes", fmt.Sprintf("Bulk tag %d nodes (%s)", len(ids), mode),
		func(b *graph.BulkMutator) (*graph.BulkResult, error) { return b.TagNodes(ids, tags, mode) })
}

func (s *Service) bulk(ctx context.Context, op, label string, fn func(*graph.BulkMutator) (*graph.BulkResult, error)) (*BulkOutcome, error) {
	out := &BulkOutcome{}
	result, err := s.mutate(ctx, op, label, func(st *graph.Store) error {
		r, err := fn(graph.NewBulkMutator(st))
		if err != nil {
			return err
		}
		out.BulkResult = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Mutation = result
	return out, nil
}

// ExportNodes returns the requested nodes and the ids that were missing.
func (s *Service) ExportNodes(ctx context.Context, ids []string) (*graph.ExportResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: node_ids array is required", ErrInvalidArgument)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return graph.NewBulkMutator(s.store).ExportNodes(ids), nil
}

// =============================================================================
// Templates
// =============================================================================

// TemplateResult reports what applying a template wrote.
type TemplateResult struct {
	TemplateID   string         `json:"template_id"`
	NodesCreated int            `json:"nodes_created"`
	EdgesCreated int            `json:"edges_created"`
	Mutation     MutationResult `json:"mutation"`
}

// ApplyTemplate renders a template and merges the records into the graph.
func (s *Service) ApplyTemplate(ctx context.Context, id string, vars map[string]string) (*TemplateResult, error) {
	if s.templates == nil {
		return nil, fmt.Errorf("%w: template %q", ErrNotFound, id)
	}
	snap, err := s.templates.Apply(id, vars)
	if err != nil {
		return nil, translate(err)
	}
	out := &TemplateResult{TemplateID: id}
	result, err := s.mutate(ctx, "apply_template", "Applied template: "+id, func(st *graph.Store) error {
		out.NodesCreated, out.EdgesCreated = st.Merge(snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Mutation = result
	return out, nil
}

// ListTemplates returns every template summary.
func (s *Service) ListTemplates() []templates.Summary {
	if s.templates == nil {
		return []templates.Summary{}
	}
	return s.templates.List()
}

// GetTemplate returns one template.
func (s *Service) GetTemplate(id string) (*templates.Template, error) {
	if s.templates == nil {
		return nil, fmt.Errorf("%w: template %q", ErrNotFound, id)
	}
	t, err := s.templates.Get(id)
	return t, translate(err)
}

// SaveTemplate validates and stores a user template.
func (s *Service) SaveTemplate(t templates.Template) (*templates.Template, error) {
	if s.templates == nil {
		return nil, fmt.Errorf("%w: templates are not configured", ErrInvalidArgument)
	}
	saved, err := s.templates.Save(t)
	return saved, translate(err)
}

// DeleteTemplate removes a user template.
func (s *Service) DeleteTemplate(id string) error {
	if s.templates == nil {
		return fmt.Errorf("%w: template %q", ErrNotFound, id)
	}
	return translate(s.templates.Delete(id))
}

// =============================================================================
// Sessions
// =============================================================================

// RestoreResult is the outcome of restoring a session.
type RestoreResult struct {
	Session  badger.SessionSummary `json:"session"`
	Mutation MutationResult        `json:"mutation"`
}

// SaveSession persists the current graph under name.
func (s *Service) SaveSession(ctx context.Context, name string, metadata *graph.Object) (badger.SessionSummary, error) {
	if s.sessions == nil {
		return badger.SessionSummary{}, ErrSessionsDisabled
	}
	s.mu.RLock()
	snap := s.store.Snapshot()
	s.mu.RUnlock()

	summary, err := s.sessions.Save(ctx, name, snap, metadata, history.Digest(snap))
	if err != nil {
		return badger.SessionSummary{}, translate(err)
	}
	s.logger.Info("Session saved", "session_id", summary.ID, "name", summary.Name)
	return summary, nil
}

// ListSessions returns saved sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, limit int) ([]badger.SessionSummary, error) {
	if s.sessions == nil {
		return nil, ErrSessionsDisabled
	}
	list, err := s.sessions.List(ctx, limit)
	return list, translate(err)
}

// LoadSession returns a saved session including its graph.
func (s *Service) LoadSession(ctx context.Context, id string) (*badger.Session, error) {
	if s.sessions == nil {
		return nil, ErrSessionsDisabled
	}
	if err := validation.ValidateSessionID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	sess, err := s.sessions.Load(ctx, id)
	return sess, translate(err)
}

// DeleteSession removes a saved session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if s.sessions == nil {
		return ErrSessionsDisabled
	}
	if err := validation.ValidateSessionID(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return translate(s.sessions.Delete(ctx, id))
}

// RestoreSession replaces the graph with a saved session. The restore is
// a mutation and can be undone.
func (s *Service) RestoreSession(ctx context.Context, id string) (*RestoreResult, error) {
	sess, err := s.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.mutate(ctx, "restore_session", "Restored session: "+sess.Name, func(st *graph.Store) error {
		st.Restore(sess.Graph)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RestoreResult{Session: sess.SessionSummary, Mutation: result}, nil
}

// =============================================================================
// History
// =============================================================================

// HistoryResult is the outcome of an undo or redo.
type HistoryResult struct {
	Status      string         `json:"status"`
	Label       string         `json:"label"`
	Graph       graph.Snapshot `json:"graph"`
	HistoryInfo history.Info   `json:"history_info"`
}

// Undo restores the previous snapshot.
//
// Errors:
//
//	ErrNothingToUndo - The cursor is at the oldest entry
func (s *Service) Undo(ctx context.Context) (*HistoryResult, error) {
	return s.step(ctx, "undo", "undone", EventHistoryUndo, s.history.Undo, ErrNothingToUndo)
}

// Redo reapplies the next snapshot.
//
// Errors:
//
//	ErrNothingToRedo - The cursor is at the newest entry
func (s *Service) Redo(ctx context.Context) (*HistoryResult, error) {
	return s.step(ctx, "redo", "redone", EventHistoryRedo, s.history.Redo, ErrNothingToRedo)
}

func (s *Service) step(ctx context.Context, op, status, kind string, move func() (history.Entry, bool), empty error) (*HistoryResult, error) {
	_, span := tracer.Start(ctx, "wolftrace.Service."+op)
	defer span.End()

	s.mu.Lock()
	entry, ok := move()
	if !ok {
		s.mu.Unlock()
		mutationTotal.WithLabelValues(op, "empty").Inc()
		return nil, empty
	}
	s.store.Restore(entry.Snapshot)
	result := s.resultLocked(entry.Label)
	info := s.history.Info()
	s.mu.Unlock()

	mutationTotal.WithLabelValues(op, "ok").Inc()
	s.publish(kind, result)
	return &HistoryResult{
		Status:      status,
		Label:       entry.Label,
		Graph:       entry.Snapshot,
		HistoryInfo: info,
	}, nil
}

// HistoryInfo reports the history cursor and entries.
func (s *Service) HistoryInfo() history.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Info()
}

// ClearHistory drops every entry and re-seeds the history with the current
// graph, so the next mutation is undoable back to it.
func (s *Service) ClearHistory(ctx context.Context) history.Info {
	_, span := tracer.Start(ctx, "wolftrace.Service.clear_history")
	defer span.End()

	s.mu.Lock()
	s.history.Clear()
	s.history.SaveState(s.store.Snapshot(), labelHistoryCleared)
	result := s.resultLocked(labelHistoryCleared)
	info := s.history.Info()
	s.mu.Unlock()

	s.publish(EventHistoryCleared, result)
	return info
}

// =============================================================================
// Read entry points
// =============================================================================

// Counts returns the current node and edge counts.
func (s *Service) Counts() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.NodeCount(), s.store.EdgeCount()
}

// Nodes returns nodes in insertion order, optionally of one type.
func (s *Service) Nodes(nodeType string) []graph.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Nodes(nodeType)
}

// Edges returns edges in insertion order, optionally of one type.
func (s *Service) Edges(edgeType string) []graph.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Edges(edgeType)
}

// Graph returns a snapshot of the whole graph.
func (s *Service) Graph() graph.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Snapshot()
}

// PaginatedGraph returns one page of nodes with the edges touching it.
func (s *Service) PaginatedGraph(page, perPage int, nodeType string) *graph.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Paginate(page, perPage, nodeType)
}

// Export returns the whole graph in the requested format. Only "json" is
// supported; an empty format means json.
func (s *Service) Export(format string) (graph.Snapshot, error) {
	if format != "" && format != "json" {
		return graph.Snapshot{}, fmt.Errorf("%w: format %q not supported", ErrInvalidArgument, format)
	}
	return s.Graph(), nil
}

// FindPaths finds directed simple paths from source to target.
func (s *Service) FindPaths(ctx context.Context, source, target string, maxDepth int) (*graph.PathsResult, error) {
	if source == "" || target == "" {
		return nil, fmt.Errorf("%w: missing source or target", ErrInvalidArgument)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.FindPaths(ctx, source, target, maxDepth), nil
}

// Neighbors returns the undirected neighborhood of a node. An unknown node
// yields a result with Found=false.
func (s *Service) Neighbors(ctx context.Context, nodeID string, depth int) (*graph.Neighborhood, error) {
	if nodeID == "" {
		return nil, fmt.Errorf("%w: node id required", ErrInvalidArgument)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Neighbors(ctx, nodeID, depth), nil
}

// Communities detects communities. Concurrent calls for the same graph
// generation share one computation, so the result must be treated as
// read-only.
func (s *Service) Communities(ctx context.Context, maxCommunities int) (*graph.CommunityResult, error) {
	if maxCommunities <= 0 {
		maxCommunities = graph.DefaultMaxCommunities
	}
	v, err := s.shared(ctx, "communities", fmt.Sprint(maxCommunities), func(ctx context.Context) any {
		return s.store.FindCommunities(ctx, maxCommunities)
	})
	if err != nil {
		return nil, err
	}
	return v.(*graph.CommunityResult), nil
}

// Statistics computes whole-graph statistics. Results are shared between
// concurrent callers like Communities.
func (s *Service) Statistics(ctx context.Context) (*graph.Statistics, error) {
	v, err := s.shared(ctx, "stats", "", func(ctx context.Context) any {
		return s.store.Statistics(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*graph.Statistics), nil
}

// shared runs fn under the read lock through singleflight, keyed by the
// analysis, its parameters and the store generation.
func (s *Service) shared(ctx context.Context, analysis, params string, fn func(context.Context) any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	gen := s.store.Generation()
	s.mu.RUnlock()

	key := fmt.Sprintf("%s:%s:%d", analysis, params, gen)
	v, _, shared := s.analytics.Do(key, func() (any, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		// The computation outlives any single caller's cancellation.
		return fn(context.WithoutCancel(ctx)), nil
	})
	if shared {
		analyticsShared.WithLabelValues(analysis).Inc()
	}
	return v, nil
}

// Search finds nodes whose id, type or attributes contain query.
func (s *Service) Search(ctx context.Context, query, nodeType string, limit int) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Search(ctx, query, nodeType, limit)
}

// Query runs attribute filters with pagination.
func (s *Service) Query(ctx context.Context, filters graph.Filters) *graph.QueryResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Query(ctx, filters)
}

// QueryStatistics summarizes the filtered subgraph, ignoring pagination.
func (s *Service) QueryStatistics(ctx context.Context, filters graph.Filters) *graph.QueryStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.QueryStatistics(ctx, filters)
}

// Compare diffs two caller-supplied graphs. It does not touch the store.
func (s *Service) Compare(a, b graph.Snapshot) *graph.Comparison {
	return graph.CompareGraphs(a, b)
}

// DiffGraph builds the annotated union of two caller-supplied graphs.
func (s *Service) DiffGraph(a, b graph.Snapshot) *graph.DiffGraph {
	return graph.CreateDiffGraph(graph.CompareGraphs(a, b))
}
