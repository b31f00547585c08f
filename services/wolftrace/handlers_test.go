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
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	svc := newTestService(t)
	router := gin.New()
	router.Use(RequestID())
	RegisterRoutes(&router.RouterGroup, NewHandlers(svc))
	return router, svc
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHandleHealth(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestRequestID_EchoesClientHeader(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trace-123", w.Header().Get("X-Request-ID"))
}

func TestHandleAddNodeAndEdge(t *testing.T) {
	router, svc := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"n1","type":"User","age":30}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[NodeResponse](t, w)
	assert.Equal(t, "n1", resp.Node.ID)
	assert.Equal(t, 1, resp.Mutation.NodeCount)

	w = doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"n2"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/edges", `{"source":"n1","target":"n2","type":"KNOWS"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	nodes, edges := svc.Counts()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)

	w = doJSON(t, router, http.MethodPost, "/api/nodes", `{"type":"User"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePaths(t *testing.T) {
	router, _ := setupTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"n1"}`)
	doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"n2"}`)
	doJSON(t, router, http.MethodPost, "/api/edges", `{"source":"n1","target":"n2","type":"KNOWS"}`)

	w := doJSON(t, router, http.MethodPost, "/api/paths", PathsRequest{Source: "n1", Target: "n2", MaxDepth: 1})
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		Paths []struct {
			Nodes []string `json:"nodes"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Paths, 1)
	assert.Equal(t, []string{"n1", "n2"}, result.Paths[0].Nodes)
}

func TestHandlePaths_ValidationFields(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/paths", `{"source":"n1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "VALIDATION_FAILED", resp.Code)
	assert.Contains(t, resp.Fields, "target")
}

func TestHandlePaginatedGraph_PastLastPage(t *testing.T) {
	router, _ := setupTestRouter(t)
	for _, id := range []string{"a", "b", "c"} {
		require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"`+id+`"}`).Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/graph/paginated?page=9223372036854775807&per_page=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Nodes      []json.RawMessage `json:"nodes"`
		Pagination struct {
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}](t, w)
	assert.Empty(t, resp.Nodes)
	assert.Equal(t, 3, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
}

func TestHandleUndoRedo(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/history/undo", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NOTHING_TO_UNDO", decode[ErrorResponse](t, w).Code)

	doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"n1"}`)

	w = doJSON(t, router, http.MethodPost, "/api/history/undo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	undone := decode[HistoryResult](t, w)
	assert.Equal(t, "undone", undone.Status)
	assert.Empty(t, undone.Graph.Nodes)
	assert.True(t, undone.HistoryInfo.CanRedo)

	w = doJSON(t, router, http.MethodPost, "/api/history/redo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[HistoryResult](t, w).Graph.Nodes, 1)

	w = doJSON(t, router, http.MethodPost, "/api/history/redo", nil)
	assert.Equal(t, "NOTHING_TO_REDO", decode[ErrorResponse](t, w).Code)
}

func TestHandleBulkDeleteNodes(t *testing.T) {
	router, _ := setupTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"n1"}`)

	w := doJSON(t, router, http.MethodPost, "/api/bulk/nodes/delete",
		BulkNodeIDsRequest{NodeIDs: []string{"n1", "n_missing"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		SuccessCount int            `json:"success_count"`
		FailureCount int            `json:"failure_count"`
		Mutation     MutationResult `json:"mutation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.SuccessCount)
	assert.Equal(t, 1, out.FailureCount)
	assert.Equal(t, 0, out.Mutation.NodeCount)

	w = doJSON(t, router, http.MethodPost, "/api/bulk/nodes/delete", `{"node_ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCompare(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := `{
		"graph1": {"nodes":[{"id":"n1","type":"User","age":30}],"edges":[]},
		"graph2": {"nodes":[{"id":"n1","type":"User","age":31}],"edges":[]}
	}`
	w := doJSON(t, router, http.MethodPost, "/api/compare", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cmp struct {
		Summary struct {
			ChangedNodes int `json:"changed_nodes"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cmp))
	assert.Equal(t, 1, cmp.Summary.ChangedNodes)

	w = doJSON(t, router, http.MethodPost, "/api/compare", `{"graph1":{"nodes":[]}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleImport(t *testing.T) {
	router, svc := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/import",
		`{"collector":"edgelist","data":[{"source":"a","target":"b","type":"LINK"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	nodes, edges := svc.Counts()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)

	w = doJSON(t, router, http.MethodPost, "/api/import", `{"collector":"edgelist"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/import", `{"collector":"nmap","data":{}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleImportZip(t *testing.T) {
	router, svc := setupTestRouter(t)

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	f, err := zw.Create("hosts.json")
	require.NoError(t, err)
	_, err = f.Write([]byte(`{"nodes":[{"id":"h1","type":"Host"}]}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("collector", "generic"))
	part, err := mw.CreateFormFile("file", "export.zip")
	require.NoError(t, err)
	_, err = part.Write(archive.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import-zip", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[ImportResult](t, w)
	assert.Equal(t, []string{"hosts.json"}, res.Files)
	assert.True(t, svc.store.HasNode("h1"))
}

func TestHandleTemplates(t *testing.T) {
	router, svc := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "network-segment")

	w = doJSON(t, router, http.MethodPost, "/api/templates/ad-attack-path/apply",
		`{"variables":{"user":"JDOE"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, svc.store.HasNode("JDOE@CORP.LOCAL"))

	w = doJSON(t, router, http.MethodPost, "/api/templates/ad-attack-path/apply", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/templates/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSessions(t *testing.T) {
	router, _ := setupTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"alice"}`)

	w := doJSON(t, router, http.MethodPost, "/api/sessions", `{"name":"baseline"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))

	doJSON(t, router, http.MethodPost, "/api/clear", nil)

	w = doJSON(t, router, http.MethodPost, "/api/sessions/"+saved.ID+"/restore", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/sessions/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	w = doJSON(t, router, http.MethodDelete, "/api/sessions/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/sessions/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/sessions/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleQuery(t *testing.T) {
	router, _ := setupTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"u1","type":"User"}`)
	doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"h1","type":"Host"}`)

	w := doJSON(t, router, http.MethodPost, "/api/query", `{"node_type":"User"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		TotalNodes int `json:"total_nodes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.TotalNodes)

	w = doJSON(t, router, http.MethodPost, "/api/query", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.TotalNodes)
}

func TestHandleSearch_RequiresQuery(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/search", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Fields, "q")
}

func TestRateLimit(t *testing.T) {
	svc := newTestService(t)
	router := gin.New()
	RegisterRoutes(&router.RouterGroup, NewHandlers(svc).WithRateLimit(0.001, 1))

	w := doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"a"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"b"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decode[ErrorResponse](t, w).Code)

	// Reads are not limited.
	w = doJSON(t, router, http.MethodGet, "/api/nodes", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleEvents(t *testing.T) {
	router, _ := setupTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered after the upgrade completes.
	// Keep mutating until the first event arrives.
	received := make(chan Event, 1)
	go func() {
		var ev Event
		if err := conn.ReadJSON(&ev); err == nil {
			received <- ev
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		resp, err := http.Post(server.URL+"/api/nodes", "application/json", strings.NewReader(`{"id":"n1"}`))
		require.NoError(t, err)
		resp.Body.Close()

		select {
		case ev := <-received:
			assert.Equal(t, EventGraphChanged, ev.Kind)
			assert.Equal(t, 1, ev.NodeCount)
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("no event received")
		}
	}
}

func TestHandleEvents_ChecksOrigin(t *testing.T) {
	svc := newTestService(t)
	svc.Events().AllowOrigins("http://console.example:3000")
	router := gin.New()
	RegisterRoutes(&router.RouterGroup, NewHandlers(svc))
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"
	dial := func(origin string) (*http.Response, error) {
		header := http.Header{}
		header.Set("Origin", origin)
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		if err == nil {
			conn.Close()
		}
		return resp, err
	}

	resp, err := dial("http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, err = dial(server.URL)
	assert.NoError(t, err)

	_, err = dial("http://console.example:3000")
	assert.NoError(t, err)
}

func TestHandleQueryStringHandlers(t *testing.T) {
	router, _ := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"u1","type":"User"}`).Code)
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/nodes", `{"id":"h1","type":"Host"}`).Code)

	w := doJSON(t, router, http.MethodGet, "/api/nodes?type=User", nil)
	require.Equal(t, http.StatusOK, w.Code)
	nodes := decode[[]map[string]any](t, w)
	require.Len(t, nodes, 1)
	assert.Equal(t, "u1", nodes[0]["id"])

	w = doJSON(t, router, http.MethodGet, "/api/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode[ErrorResponse](t, w).Code)

	w = doJSON(t, router, http.MethodGet, "/api/export", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
