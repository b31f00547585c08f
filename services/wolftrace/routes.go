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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all WolfTrace routes with the router.
//
// Description:
//
//	Registers all /api/* endpoints with the given Gin router group.
//	Mutating endpoints pass through the handlers' rate limiter.
//
// Inputs:
//
//	rg - Gin router group (typically the engine's root group)
//	handlers - The handlers instance
//
// Graph Endpoints:
//
//	GET  /api                    - Endpoint index
//	GET  /api/health             - Health check with graph size
//	GET  /api/nodes              - List nodes (?type=)
//	POST /api/nodes              - Add or update a node
//	GET  /api/edges              - List edges (?type=)
//	POST /api/edges              - Add an edge
//	GET  /api/graph              - Whole graph
//	GET  /api/graph/paginated    - One page of nodes with their edges
//	POST /api/clear              - Remove everything
//
// Import and Export:
//
//	GET  /api/plugins            - Registered collectors
//	POST /api/import             - Import a JSON document via a collector
//	POST /api/import-zip         - Import a ZIP of JSON documents
//	GET  /api/export             - Export the graph (?format=json)
//
// Analysis:
//
//	POST /api/paths                  - Simple paths between two nodes
//	GET  /api/search                 - Text search (?q=&type=&limit=)
//	GET  /api/analytics/stats        - Graph statistics
//	GET  /api/analytics/communities  - Community detection (?max=)
//	GET  /api/analytics/neighbors    - Breadth-first neighborhood (?node=&depth=)
//	POST /api/query                  - Filtered, paginated query
//	POST /api/query/stats            - Statistics of a filtered query
//	POST /api/compare                - Diff two graphs
//	POST /api/compare/diff-graph     - Diff rendered as one annotated graph
//
// Sessions, Bulk, Templates, History:
//
//	GET    /api/sessions              - List saved sessions (?limit=)
//	POST   /api/sessions              - Save the current graph
//	GET    /api/sessions/:id          - Load a session
//	DELETE /api/sessions/:id          - Delete a session
//	POST   /api/sessions/:id/restore  - Replace the graph with a session
//	POST   /api/bulk/nodes/delete     - Delete nodes
//	POST   /api/bulk/edges/delete     - Delete edges
//	POST   /api/bulk/nodes/update     - Merge node attributes
//	POST   /api/bulk/nodes/tag        - Add, remove or replace tags
//	POST   /api/bulk/nodes/export     - Export nodes and their edges
//	GET    /api/templates             - List templates
//	POST   /api/templates             - Save a user template
//	GET    /api/templates/:id         - Get a template
//	DELETE /api/templates/:id         - Delete a user template
//	POST   /api/templates/:id/apply   - Render a template into the graph
//	POST   /api/history/undo          - Step back
//	POST   /api/history/redo          - Step forward
//	GET    /api/history/info          - History position and entries
//	POST   /api/history/clear         - Drop history, keeping the graph
//	GET    /api/events                - Websocket change feed
//
// Example:
//
//	svc := wolftrace.NewService(wolftrace.DefaultServiceConfig(), deps)
//	handlers := wolftrace.NewHandlers(svc).WithRateLimit(20, 40)
//
//	router := gin.New()
//	router.Use(wolftrace.RequestID())
//	wolftrace.RegisterRoutes(&router.RouterGroup, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	api := rg.Group("/api")
	{
		api.GET("", handlers.HandleIndex)
		api.GET("/health", handlers.HandleHealth)

		// Reads
		api.GET("/nodes", handlers.HandleNodes)
		api.GET("/edges", handlers.HandleEdges)
		api.GET("/graph", handlers.HandleGraph)
		api.GET("/graph/paginated", handlers.HandlePaginatedGraph)
		api.GET("/plugins", handlers.HandlePlugins)
		api.GET("/export", handlers.HandleExport)
		api.GET("/search", handlers.HandleSearch)
		api.GET("/events", handlers.HandleEvents)

		// Pure computations over the graph or the request body
		api.POST("/paths", handlers.HandlePaths)
		api.POST("/query", handlers.HandleQuery)
		api.POST("/query/stats", handlers.HandleQueryStats)
		api.POST("/compare", handlers.HandleCompare)
		api.POST("/compare/diff-graph", handlers.HandleDiffGraph)
		api.POST("/bulk/nodes/export", handlers.HandleBulkExportNodes)

		analytics := api.Group("/analytics")
		{
			analytics.GET("/stats", handlers.HandleStats)
			analytics.GET("/communities", handlers.HandleCommunities)
			analytics.GET("/neighbors", handlers.HandleNeighbors)
		}

		api.GET("/sessions", handlers.HandleListSessions)
		api.GET("/sessions/:id", handlers.HandleGetSession)
		api.GET("/templates", handlers.HandleListTemplates)
		api.GET("/templates/:id", handlers.HandleGetTemplate)
		api.GET("/history/info", handlers.HandleHistoryInfo)

		// =================================================================
		// MUTATIONS (rate limited)
		// =================================================================

		write := api.Group("", handlers.RateLimit())
		{
			write.POST("/nodes", handlers.HandleAddNode)
			write.POST("/edges", handlers.HandleAddEdge)
			write.POST("/clear", handlers.HandleClear)
			write.POST("/import", handlers.HandleImport)
			write.POST("/import-zip", handlers.HandleImportZip)

			write.POST("/bulk/nodes/delete", handlers.HandleBulkDeleteNodes)
			write.POST("/bulk/edges/delete", handlers.HandleBulkDeleteEdges)
			write.POST("/bulk/nodes/update", handlers.HandleBulkUpdateNodes)
			write.POST("/bulk/nodes/tag", handlers.HandleBulkTagNodes)

			write.POST("/sessions", handlers.HandleSaveSession)
			write.DELETE("/sessions/:id", handlers.HandleDeleteSession)
			write.POST("/sessions/:id/restore", handlers.HandleRestoreSession)

			write.POST("/templates", handlers.HandleSaveTemplate)
			write.DELETE("/templates/:id", handlers.HandleDeleteTemplate)
			write.POST("/templates/:id/apply", handlers.HandleApplyTemplate)

			write.POST("/history/undo", handlers.HandleUndo)
			write.POST("/history/redo", handlers.HandleRedo)
			write.POST("/history/clear", handlers.HandleClearHistory)
		}
	}
}
