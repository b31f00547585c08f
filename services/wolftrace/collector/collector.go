// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package collector turns collected security data into graph records.
//
// A Collector parses one input format. Two are built in:
//
//   - "generic" reads the snapshot shape {"nodes": [...], "edges": [...]}.
//   - "edgelist" reads a JSON array of edges and creates missing endpoints
//     as nodes of type Entity.
//
// Collectors only decode. Batch.Apply merges the decoded records into a
// store.
package collector

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

// ErrUnknownCollector is returned when no collector has the requested name.
var ErrUnknownCollector = errors.New("unknown collector")

// Collector parses raw collected data into graph records.
type Collector interface {
	// Name returns the registry key, e.g. "generic".
	Name() string

	// Description returns a one-line summary for listings.
	Description() string

	// Parse decodes data. Malformed input returns an error wrapping
	// graph.ErrInvalidArgument.
	Parse(data []byte) (*Batch, error)
}

// Batch is the decoded output of a collector.
type Batch struct {
	graph.Snapshot

	// Placeholders are node ids that must exist after the import. They are
	// added as DefaultNodeType only when absent, so known nodes keep their
	// type and attributes.
	Placeholders []string
}

// Apply upserts the batch nodes, appends its edges and then creates any
// missing placeholder nodes. It returns the number of nodes written and
// edges appended.
func (b *Batch) Apply(s *graph.Store) (nodes, edges int) {
	nodes, edges = s.Merge(b.Snapshot)
	for _, id := range b.Placeholders {
		if !s.HasNode(id) {
			s.AddNode(id, graph.DefaultNodeType, nil)
			nodes++
		}
	}
	return nodes, edges
}

// Info describes a registered collector.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry maps names to collectors. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
}

// NewRegistry returns a registry holding the given collectors.
func NewRegistry(collectors ...Collector) *Registry {
	r := &Registry{collectors: make(map[string]Collector, len(collectors))}
	for _, c := range collectors {
		r.collectors[c.Name()] = c
	}
	return r
}

// DefaultRegistry returns a registry with the built-in collectors.
func DefaultRegistry() *Registry {
	return NewRegistry(Generic{}, EdgeList{})
}

// Register adds or replaces a collector.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[c.Name()] = c
}

// Get returns the named collector.
func (r *Registry) Get(name string) (Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollector, name)
	}
	return c, nil
}

// List returns every collector sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.collectors))
	for _, c := range r.collectors {
		out = append(out, Info{Name: c.Name(), Description: c.Description()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Generic reads {"nodes": [...], "edges": [...]}. Either key may be absent.
type Generic struct{}

func (Generic) Name() string { return "generic" }

func (Generic) Description() string {
	return "Graph JSON with top-level nodes and edges arrays"
}

func (Generic) Parse(data []byte) (*Batch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, invalid("generic", errors.New("expected a JSON object"))
	}
	var snap graph.Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, invalid("generic", err)
	}
	return &Batch{Snapshot: snap}, nil
}

// EdgeList reads [{"source": .., "target": .., "type": .., ...}].
type EdgeList struct{}

func (EdgeList) Name() string { return "edgelist" }

func (EdgeList) Description() string {
	return "JSON array of edges; endpoints become Entity nodes"
}

func (EdgeList) Parse(data []byte) (*Batch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, invalid("edgelist", errors.New("expected a JSON array"))
	}
	var edges []graph.Edge
	if err := json.Unmarshal(trimmed, &edges); err != nil {
		return nil, invalid("edgelist", err)
	}

	batch := &Batch{Snapshot: graph.Snapshot{Edges: edges}}
	seen := make(map[string]bool)
	for _, e := range edges {
		for _, id := range [2]string{e.Source, e.Target} {
			if !seen[id] {
				seen[id] = true
				batch.Placeholders = append(batch.Placeholders, id)
			}
		}
	}
	return batch, nil
}

func invalid(name string, err error) error {
	if errors.Is(err, graph.ErrInvalidArgument) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%w: %s: %v", graph.ErrInvalidArgument, name, err)
}
