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
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
	"github.com/wolftrace/wolftrace/services/wolftrace/templates"
)

// Handlers contains the HTTP handlers for the WolfTrace API.
type Handlers struct {
	svc     *Service
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc, logger: svc.logger}
}

// WithRateLimit limits mutating endpoints to rps requests per second with
// the given burst. rps <= 0 disables limiting.
func (h *Handlers) WithRateLimit(rps float64, burst int) *Handlers {
	if rps <= 0 {
		h.limiter = nil
		return h
	}
	if burst < 1 {
		burst = 1
	}
	h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return h
}

// HandleIndex handles GET /api.
func (h *Handlers) HandleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, IndexResponse{
		Name:    "WolfTrace API",
		Version: ServiceVersion,
		Endpoints: map[string]string{
			"health":     "/api/health",
			"nodes":      "/api/nodes",
			"edges":      "/api/edges",
			"graph":      "/api/graph",
			"paths":      "/api/paths",
			"search":     "/api/search",
			"analytics":  "/api/analytics",
			"query":      "/api/query",
			"compare":    "/api/compare",
			"plugins":    "/api/plugins",
			"import":     "/api/import",
			"import_zip": "/api/import-zip",
			"export":     "/api/export",
			"sessions":   "/api/sessions",
			"bulk":       "/api/bulk",
			"templates":  "/api/templates",
			"history":    "/api/history",
			"events":     "/api/events",
		},
	})
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	nodes, edges := h.svc.Counts()
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: ServiceVersion,
		Nodes:   nodes,
		Edges:   edges,
	})
}

// =============================================================================
// Graph contents
// =============================================================================

// HandleNodes handles GET /api/nodes?type=.
func (h *Handlers) HandleNodes(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, h.requestLogger(c, "HandleNodes"), err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Nodes(q.Type))
}

// HandleEdges handles GET /api/edges?type=.
func (h *Handlers) HandleEdges(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, h.requestLogger(c, "HandleEdges"), err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Edges(q.Type))
}

// HandleGraph handles GET /api/graph.
func (h *Handlers) HandleGraph(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Graph())
}

// HandlePaginatedGraph handles GET /api/graph/paginated.
func (h *Handlers) HandlePaginatedGraph(c *gin.Context) {
	logger := h.requestLogger(c, "HandlePaginatedGraph")
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.PaginatedGraph(q.Page, q.PerPage, q.Type))
}

// HandleAddNode handles POST /api/nodes.
//
// Request Body:
//
//	A flat node: {"id": .., "type": .., ...attributes}
//
// Response:
//
//	201 Created: NodeResponse
//	400 Bad Request: Missing id or malformed body
func (h *Handlers) HandleAddNode(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAddNode")

	var node graph.Node
	if err := c.ShouldBindJSON(&node); err != nil {
		h.bindError(c, logger, err)
		return
	}
	stored, result, err := h.svc.AddNode(c.Request.Context(), node.ID, node.Type, node.Attributes)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, NodeResponse{Node: stored, Mutation: result})
}

// HandleAddEdge handles POST /api/edges.
//
// Request Body:
//
//	A flat edge: {"source": .., "target": .., "type": .., ...attributes}
func (h *Handlers) HandleAddEdge(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAddEdge")

	var edge graph.Edge
	if err := c.ShouldBindJSON(&edge); err != nil {
		h.bindError(c, logger, err)
		return
	}
	stored, result, err := h.svc.AddEdge(c.Request.Context(), edge.Source, edge.Target, edge.Type, edge.Attributes)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, EdgeResponse{Edge: stored, Mutation: result})
}

// =============================================================================
// Import and export
// =============================================================================

// HandlePlugins handles GET /api/plugins.
func (h *Handlers) HandlePlugins(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Collectors())
}

// HandleImport handles POST /api/import.
//
// Request Body:
//
//	ImportRequest
//
// Response:
//
//	200 OK: ImportResult
//	400 Bad Request: Missing collector or data, or undecodable data
//	404 Not Found: Unknown collector
func (h *Handlers) HandleImport(c *gin.Context) {
	logger := h.requestLogger(c, "HandleImport")

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	data := bytes.TrimSpace(req.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Data required", Code: "INVALID_REQUEST"})
		return
	}

	result, err := h.svc.Import(c.Request.Context(), req.Collector, data)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	logger.Info("Import complete", "collector", req.Collector,
		"nodes", result.NodesImported, "edges", result.EdgesImported)
	c.JSON(http.StatusOK, result)
}

// HandleImportZip handles POST /api/import-zip.
//
// Request Body:
//
//	multipart/form-data with fields "collector" and "file"
func (h *Handlers) HandleImportZip(c *gin.Context) {
	logger := h.requestLogger(c, "HandleImportZip")

	name := c.PostForm("collector")
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Collector name required", Code: "INVALID_REQUEST"})
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "ZIP file required (multipart/form-data with 'file')",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.writeError(c, logger, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	result, err := h.svc.ImportZip(c.Request.Context(), name, file, header.Size)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	logger.Info("ZIP import complete", "collector", name, "files", len(result.Files), "skipped", len(result.Skipped))
	c.JSON(http.StatusOK, result)
}

// HandleExport handles GET /api/export?format=json.
func (h *Handlers) HandleExport(c *gin.Context) {
	logger := h.requestLogger(c, "HandleExport")
	var q ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, logger, err)
		return
	}
	snap, err := h.svc.Export(q.Format)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// HandleClear handles POST /api/clear.
func (h *Handlers) HandleClear(c *gin.Context) {
	logger := h.requestLogger(c, "HandleClear")
	result, err := h.svc.Clear(c.Request.Context())
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	logger.Info("Graph cleared")
	c.JSON(http.StatusOK, StatusResponse{Status: "cleared", Mutation: &result})
}

// =============================================================================
// Analysis
// =============================================================================

// HandlePaths handles POST /api/paths.
func (h *Handlers) HandlePaths(c *gin.Context) {
	logger := h.requestLogger(c, "HandlePaths")

	var req PathsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	result, err := h.svc.FindPaths(c.Request.Context(), req.Source, req.Target, req.MaxDepth)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleSearch handles GET /api/search?q=&type=&limit=.
func (h *Handlers) HandleSearch(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSearch")

	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, logger, err)
		return
	}
	nodes, err := h.svc.Search(c.Request.Context(), q.Q, q.Type, q.Limit)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

// HandleStats handles GET /api/analytics/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	logger := h.requestLogger(c, "HandleStats")
	stats, err := h.svc.Statistics(c.Request.Context())
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandleCommunities handles GET /api/analytics/communities?max=.
func (h *Handlers) HandleCommunities(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCommunities")

	var q CommunitiesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, logger, err)
		return
	}
	result, err := h.svc.Communities(c.Request.Context(), q.Max)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleNeighbors handles GET /api/analytics/neighbors?node=&depth=.
func (h *Handlers) HandleNeighbors(c *gin.Context) {
	logger := h.requestLogger(c, "HandleNeighbors")

	var q NeighborsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, logger, err)
		return
	}
	result, err := h.svc.Neighbors(c.Request.Context(), q.Node, q.Depth)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleQuery handles POST /api/query. An empty body selects everything.
func (h *Handlers) HandleQuery(c *gin.Context) {
	logger := h.requestLogger(c, "HandleQuery")

	var filters graph.Filters
	if err := bindOptionalJSON(c, &filters); err != nil {
		h.bindError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Query(c.Request.Context(), filters))
}

// HandleQueryStats handles POST /api/query/stats.
func (h *Handlers) HandleQueryStats(c *gin.Context) {
	logger := h.requestLogger(c, "HandleQueryStats")

	var filters graph.Filters
	if err := bindOptionalJSON(c, &filters); err != nil {
		h.bindError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.QueryStatistics(c.Request.Context(), filters))
}

// HandleCompare handles POST /api/compare.
func (h *Handlers) HandleCompare(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCompare")

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Compare(*req.Graph1, *req.Graph2))
}

// HandleDiffGraph handles POST /api/compare/diff-graph.
func (h *Handlers) HandleDiffGraph(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDiffGraph")

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.DiffGraph(*req.Graph1, *req.Graph2))
}

// =============================================================================
// Sessions
// =============================================================================

// HandleListSessions handles GET /api/sessions?limit=.
func (h *Handlers) HandleListSessions(c *gin.Context) {
	logger := h.requestLogger(c, "HandleListSessions")

	var q SessionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, logger, err)
		return
	}
	list, err := h.svc.ListSessions(c.Request.Context(), q.Limit)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// HandleSaveSession handles POST /api/sessions.
func (h *Handlers) HandleSaveSession(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSaveSession")

	var req SaveSessionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	summary, err := h.svc.SaveSession(c.Request.Context(), req.Name, req.Metadata)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// HandleGetSession handles GET /api/sessions/:id.
func (h *Handlers) HandleGetSession(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetSession")
	sess, err := h.svc.LoadSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// HandleDeleteSession handles DELETE /api/sessions/:id.
func (h *Handlers) HandleDeleteSession(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDeleteSession")
	if err := h.svc.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "deleted"})
}

// HandleRestoreSession handles POST /api/sessions/:id/restore.
func (h *Handlers) HandleRestoreSession(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRestoreSession")
	result, err := h.svc.RestoreSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	logger.Info("Session restored", "session_id", result.Session.ID,
		"nodes", result.Mutation.NodeCount, "edges", result.Mutation.EdgeCount)
	c.JSON(http.StatusOK, result)
}

// =============================================================================
// Bulk operations
// =============================================================================

// HandleBulkDeleteNodes handles POST /api/bulk/nodes/delete.
func (h *Handlers) HandleBulkDeleteNodes(c *gin.Context) {
	logger := h.requestLogger(c, "HandleBulkDeleteNodes")

	var req BulkNodeIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	h.respondBulk(c, logger)(h.svc.BulkDeleteNodes(c.Request.Context(), req.NodeIDs))
}

// HandleBulkDeleteEdges handles POST /api/bulk/edges/delete.
func (h *Handlers) HandleBulkDeleteEdges(c *gin.Context) {
	logger := h.requestLogger(c, "HandleBulkDeleteEdges")

	var req BulkEdgesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	h.respondBulk(c, logger)(h.svc.BulkDeleteEdges(c.Request.Context(), req.Edges))
}

// HandleBulkUpdateNodes handles POST /api/bulk/nodes/update.
func (h *Handlers) HandleBulkUpdateNodes(c *gin.Context) {
	logger := h.requestLogger(c, "HandleBulkUpdateNodes")

	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	h.respondBulk(c, logger)(h.svc.BulkUpdateNodes(c.Request.Context(), req.Updates))
}

// HandleBulkTagNodes handles POST /api/bulk/nodes/tag.
func (h *Handlers) HandleBulkTagNodes(c *gin.Context) {
	logger := h.requestLogger(c, "HandleBulkTagNodes")

	var req BulkTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	h.respondBulk(c, logger)(h.svc.BulkTagNodes(c.Request.Context(), req.NodeIDs, req.Tags, req.Operation))
}

// HandleBulkExportNodes handles POST /api/bulk/nodes/export.
func (h *Handlers) HandleBulkExportNodes(c *gin.Context) {
	logger := h.requestLogger(c, "HandleBulkExportNodes")

	var req BulkNodeIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	result, err := h.svc.ExportNodes(c.Request.Context(), req.NodeIDs)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) respondBulk(c *gin.Context, logger *slog.Logger) func(*BulkOutcome, error) {
	return func(out *BulkOutcome, err error) {
		if err != nil {
			h.writeError(c, logger, err)
			return
		}
		logger.Info("Bulk operation complete", "operation", out.Operation,
			"succeeded", out.SuccessCount, "failed", out.FailureCount)
		c.JSON(http.StatusOK, out)
	}
}

// =============================================================================
// Templates
// =============================================================================

// HandleListTemplates handles GET /api/templates.
func (h *Handlers) HandleListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ListTemplates())
}

// HandleGetTemplate handles GET /api/templates/:id.
func (h *Handlers) HandleGetTemplate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetTemplate")
	t, err := h.svc.GetTemplate(c.Param("id"))
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// HandleSaveTemplate handles POST /api/templates.
func (h *Handlers) HandleSaveTemplate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSaveTemplate")

	var t templates.Template
	if err := c.ShouldBindJSON(&t); err != nil {
		h.bindError(c, logger, err)
		return
	}
	saved, err := h.svc.SaveTemplate(t)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// HandleDeleteTemplate handles DELETE /api/templates/:id.
func (h *Handlers) HandleDeleteTemplate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDeleteTemplate")
	if err := h.svc.DeleteTemplate(c.Param("id")); err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "deleted"})
}

// HandleApplyTemplate handles POST /api/templates/:id/apply.
func (h *Handlers) HandleApplyTemplate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleApplyTemplate")

	var req ApplyTemplateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.bindError(c, logger, err)
		return
	}
	vars := make(map[string]string, len(req.Variables))
	for k, v := range req.Variables {
		vars[k] = graph.ValueOf(v).Text()
	}
	result, err := h.svc.ApplyTemplate(c.Request.Context(), c.Param("id"), vars)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// =============================================================================
// History
// =============================================================================

// HandleUndo handles POST /api/history/undo.
//
// Response:
//
//	200 OK: HistoryResult
//	400 Bad Request: Nothing to undo
func (h *Handlers) HandleUndo(c *gin.Context) {
	logger := h.requestLogger(c, "HandleUndo")
	result, err := h.svc.Undo(c.Request.Context())
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleRedo handles POST /api/history/redo.
func (h *Handlers) HandleRedo(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRedo")
	result, err := h.svc.Redo(c.Request.Context())
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleHistoryInfo handles GET /api/history/info.
func (h *Handlers) HandleHistoryInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.HistoryInfo())
}

// HandleClearHistory handles POST /api/history/clear.
func (h *Handlers) HandleClearHistory(c *gin.Context) {
	info := h.svc.ClearHistory(c.Request.Context())
	c.JSON(http.StatusOK, StatusResponse{Status: "cleared", History: &info})
}

// HandleEvents handles GET /api/events by upgrading to a websocket.
func (h *Handlers) HandleEvents(c *gin.Context) {
	h.svc.Events().ServeHTTP(c.Writer, c.Request)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
}

// writeError maps service errors to HTTP status codes.
func (h *Handlers) writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"

	switch {
	case errors.Is(err, ErrNothingToUndo):
		status, code = http.StatusBadRequest, "NOTHING_TO_UNDO"
	case errors.Is(err, ErrNothingToRedo):
		status, code = http.StatusBadRequest, "NOTHING_TO_REDO"
	case errors.Is(err, ErrEmpty):
		status, code = http.StatusBadRequest, "EMPTY"
	case errors.Is(err, ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrInvalidArgument):
		status, code = http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, ErrSessionsDisabled):
		status, code = http.StatusServiceUnavailable, "SESSIONS_DISABLED"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Warn("Request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// bindError reports a request binding failure, listing per-field
// validation messages when the validator produced them.
func (h *Handlers) bindError(c *gin.Context, logger *slog.Logger, err error) {
	logger.Warn("Invalid request", "error", err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe)] = describeFieldError(fe)
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Request validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: fields,
		})
		return
	}
	if errors.Is(err, ErrInvalidArgument) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_ARGUMENT"})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: "Invalid request body",
		Code:  "INVALID_REQUEST",
	})
}

// bindOptionalJSON binds a JSON body if one was sent.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

// getOrCreateRequestID returns the request ID set by the middleware, the
// client's X-Request-ID, or a fresh UUID.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	id := requestIDFromHeader(c)
	c.Set(requestIDKey, id)
	return id
}
