// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package wolftrace

import (
	"encoding/json"

	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
	"github.com/wolftrace/wolftrace/services/wolftrace/history"
)

// =============================================================================
// Request Types
// =============================================================================

// PathsRequest is the request body for POST /api/paths.
type PathsRequest struct {
	// Source is the start node id.
	Source string `json:"source" binding:"required"`

	// Target is the end node id.
	Target string `json:"target" binding:"required"`

	// MaxDepth bounds path length in edges. 0 means the default (5);
	// values above 10 are clamped.
	MaxDepth int `json:"max_depth" binding:"gte=0"`
}

// ImportRequest is the request body for POST /api/import.
type ImportRequest struct {
	// Collector names the registered collector that decodes Data.
	Collector string `json:"collector" binding:"required"`

	// Data is the raw collected document.
	Data json.RawMessage `json:"data"`
}

// ListQuery filters GET /api/nodes and GET /api/edges.
type ListQuery struct {
	Type string `form:"type"`
}

// SearchQuery is the query string for GET /api/search.
type SearchQuery struct {
	Q     string `form:"q" binding:"required"`
	Type  string `form:"type"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// CommunitiesQuery is the query string for GET /api/analytics/communities.
type CommunitiesQuery struct {
	Max int `form:"max" binding:"omitempty,min=1,max=1000"`
}

// NeighborsQuery is the query string for GET /api/analytics/neighbors.
type NeighborsQuery struct {
	Node  string `form:"node" binding:"required"`
	Depth int    `form:"depth" binding:"omitempty,min=1"`
}

// PageQuery is the query string for GET /api/graph/paginated.
type PageQuery struct {
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=10000"`
	Type    string `form:"type"`
}

// ExportQuery is the query string for GET /api/export.
type ExportQuery struct {
	Format string `form:"format"`
}

// SessionListQuery is the query string for GET /api/sessions.
type SessionListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// SaveSessionRequest is the request body for POST /api/sessions.
type SaveSessionRequest struct {
	// Name defaults to "Untitled Session".
	Name string `json:"name" binding:"max=128"`

	// Metadata is stored verbatim.
	Metadata *graph.Object `json:"metadata"`
}

// CompareRequest is the request body for POST /api/compare and
// POST /api/compare/diff-graph.
type CompareRequest struct {
	Graph1 *graph.Snapshot `json:"graph1" binding:"required"`
	Graph2 *graph.Snapshot `json:"graph2" binding:"required"`
}

// BulkNodeIDsRequest is the request body for bulk node deletion and export.
type BulkNodeIDsRequest struct {
	NodeIDs []string `json:"node_ids" binding:"required,min=1,max=10000"`
}

// BulkEdgesRequest is the request body for POST /api/bulk/edges/delete.
type BulkEdgesRequest struct {
	Edges []graph.EdgeSpec `json:"edges" binding:"required,min=1,max=10000,dive"`
}

// BulkUpdateRequest is the request body for POST /api/bulk/nodes/update.
type BulkUpdateRequest struct {
	Updates []graph.NodeUpdate `json:"updates" binding:"required,min=1,max=10000,dive"`
}

// BulkTagRequest is the request body for POST /api/bulk/nodes/tag.
type BulkTagRequest struct {
	NodeIDs []string `json:"node_ids" binding:"required,min=1,max=10000"`
	Tags    []string `json:"tags" binding:"required,min=1"`

	// Operation is add, remove or replace. Default: add.
	Operation graph.TagMode `json:"operation"`
}

// ApplyTemplateRequest is the optional request body for
// POST /api/templates/:id/apply. Variable values are rendered as text.
type ApplyTemplateRequest struct {
	Variables map[string]any `json:"variables"`
}

// =============================================================================
// Response Types
// =============================================================================

// NodeResponse is returned by POST /api/nodes.
type NodeResponse struct {
	Node     graph.Node     `json:"node"`
	Mutation MutationResult `json:"mutation"`
}

// EdgeResponse is returned by POST /api/edges.
type EdgeResponse struct {
	Edge     graph.Edge     `json:"edge"`
	Mutation MutationResult `json:"mutation"`
}

// StatusResponse is returned by endpoints that only acknowledge.
type StatusResponse struct {
	Status   string          `json:"status"`
	Mutation *MutationResult `json:"mutation,omitempty"`
	History  *history.Info   `json:"history,omitempty"`
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	// Status is "ok".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// IndexResponse is the response for GET /api.
type IndexResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Fields maps request fields to validation failures.
	Fields map[string]string `json:"fields,omitempty"`
}
