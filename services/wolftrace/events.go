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
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event kinds broadcast to subscribers.
const (
	EventGraphChanged   = "graph.changed"
	EventHistoryUndo    = "history.undo"
	EventHistoryRedo    = "history.redo"
	EventHistoryCleared = "history.cleared"
)

const (
	// clientBuffer is the number of events queued per subscriber before it
	// is considered slow and dropped.
	clientBuffer = 32

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Event is a change notification.
type Event struct {
	Kind      string    `json:"kind"`
	Label     string    `json:"label"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	Position  int       `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHub fans events out to websocket subscribers.
//
// Thread Safety: Safe for concurrent use.
type EventHub struct {
	mu       sync.Mutex
	clients  map[*subscriber]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// origins lists cross-origin pages allowed to subscribe
	origins map[string]struct{}
}

type subscriber struct {
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// NewEventHub creates a hub with no subscribers.
func NewEventHub(logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &EventHub{
		clients: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger:  logger.With("component", "events"),
		origins: make(map[string]struct{}),
	}
	h.upgrader.CheckOrigin = h.checkOrigin
	return h
}

// AllowOrigins lets browser pages from the given origins, such as
// "http://localhost:3000", subscribe in addition to same-origin pages.
// "*" allows every origin.
func (h *EventHub) AllowOrigins(origins ...string) *EventHub {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, o := range origins {
		h.origins[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return h
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients), same-host origins and allowed origins.
func (h *EventHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && u.Host != "" && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	h.mu.Lock()
	_, wildcard := h.origins["*"]
	_, listed := h.origins[strings.ToLower(origin)]
	h.mu.Unlock()
	if wildcard || listed {
		return true
	}
	h.logger.Warn("Rejected event subscription", "origin", origin, "host", r.Host)
	return false
}

// Subscribers returns the number of connected clients.
func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues ev for every subscriber. Subscribers whose queue is
// full are disconnected.
func (h *EventHub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			c.close()
			eventsDropped.Inc()
			h.logger.Warn("dropping slow event subscriber")
		}
	}
}

// Close disconnects every subscriber.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

// ServeHTTP upgrades the request and streams events until the client goes
// away. Messages from the client are read only to process control frames.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	h.mu.Unlock()
	eventSubscribers.Inc()
	h.logger.Debug("event subscriber connected", "remote", r.RemoteAddr)

	go h.readPump(conn, sub)
	h.writePump(conn, sub)

	eventSubscribers.Dec()
	h.logger.Debug("event subscriber disconnected", "remote", r.RemoteAddr)
}

func (h *EventHub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sub]; ok {
		delete(h.clients, sub)
		sub.close()
	}
}

func (h *EventHub) readPump(conn *websocket.Conn, sub *subscriber) {
	defer h.remove(sub)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		h.remove(sub)
	}()
	for {
		select {
		case data, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
