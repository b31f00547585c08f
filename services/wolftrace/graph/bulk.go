// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
)

// TagsAttribute is the list attribute edited by TagNodes.
const TagsAttribute = "tags"

// TagMode selects how TagNodes edits the tag list.
type TagMode string

const (
	TagAdd     TagMode = "add"
	TagRemove  TagMode = "remove"
	TagReplace TagMode = "replace"
)

// BulkFailure is one item that could not be applied.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult reports per-item outcomes. Partial success is a normal
// outcome; applied items are never rolled back.
type BulkResult struct {
	Operation    string        `json:"operation"`
	Total        int           `json:"total"`
	Succeeded    []string      `json:"succeeded"`
	Failed       []BulkFailure `json:"failed"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	EdgesRemoved int           `json:"edges_removed,omitempty"`
}

func newBulkResult(op string, total int) *BulkResult {
	return &BulkResult{
		Operation: op,
		Total:     total,
		Succeeded: []string{},
		Failed:    []BulkFailure{},
	}
}

func (r *BulkResult) ok(id string) {
	r.Succeeded = append(r.Succeeded, id)
	r.SuccessCount++
}

func (r *BulkResult) fail(id string, err error) {
	r.Failed = append(r.Failed, BulkFailure{ID: id, Reason: err.Error()})
	r.FailureCount++
}

// EdgeSpec selects edges by endpoints and, optionally, type.
type EdgeSpec struct {
	Source string `json:"source" binding:"required"`
	Target string `json:"target" binding:"required"`
	Type   string `json:"type,omitempty"`
}

func (s EdgeSpec) String() string {
	if s.Type == "" {
		return s.Source + "->" + s.Target
	}
	return s.Source + "->" + s.Target + ":" + s.Type
}

func (s EdgeSpec) matches(e *Edge) bool {
	return e.Source == s.Source && e.Target == s.Target && (s.Type == "" || e.Type == s.Type)
}

// NodeUpdate is one node edit. Attributes merge shallowly into the existing
// mapping; RemoveAttributes are dropped afterwards.
type NodeUpdate struct {
	ID               string   `json:"id" binding:"required"`
	Type             string   `json:"type,omitempty"`
	Attributes       *Object  `json:"attributes,omitempty"`
	RemoveAttributes []string `json:"remove_attributes,omitempty"`
}

// BulkMutator applies batched edits to a store.
type BulkMutator struct {
	store *Store
}

// NewBulkMutator creates a mutator over store.
func NewBulkMutator(store *Store) *BulkMutator {
	return &BulkMutator{store: store}
}

// DeleteNodes removes each node and its incident edges.
func (b *BulkMutator) DeleteNodes(ids []string) *BulkResult {
	result := newBulkResult("delete_nodes", len(ids))
	for _, id := range ids {
		removed, ok := b.store.removeNode(id)
		if !ok {
			result.fail(id, ErrNodeNotFound)
			continue
		}
		result.EdgesRemoved += removed
		result.ok(id)
	}
	return result
}

// DeleteEdges removes every edge matching each spec. A spec matching
// nothing is a failure.
func (b *BulkMutator) DeleteEdges(specs []EdgeSpec) *BulkResult {
	result := newBulkResult("delete_edges", len(specs))
	for _, spec := range specs {
		removed := b.store.removeEdges(spec.matches)
		if removed == 0 {
			result.fail(spec.String(), ErrEdgeNotFound)
			continue
		}
		result.EdgesRemoved += removed
		result.ok(spec.String())
	}
	return result
}

// UpdateNodes applies each update to an existing node.
func (b *BulkMutator) UpdateNodes(updates []NodeUpdate) *BulkResult {
	result := newBulkResult("update_nodes", len(updates))
	retyped := false
	for _, u := range updates {
		n, ok := b.store.nodeRef(u.ID)
		if !ok {
			result.fail(u.ID, ErrNodeNotFound)
			continue
		}
		u.Attributes.Range(func(k string, v Value) bool {
			if k != "id" && k != "type" {
				n.Attributes.Set(k, v.Clone())
			}
			return true
		})
		for _, k := range u.RemoveAttributes {
			n.Attributes.Delete(k)
		}
		if u.Type != "" && u.Type != n.Type {
			n.Type = u.Type
			retyped = true
		}
		result.ok(u.ID)
	}
	if result.SuccessCount > 0 {
		b.store.generation++
	}
	if retyped {
		b.store.reindex()
	}
	return result
}

// TagNodes edits the tags list of each node.
//
// Description:
//
//	add appends tags not yet present, remove drops the given tags and
//	replace sets the list to tags. The resulting list keeps first-seen order
//	without duplicates. A non-list tags attribute is treated as a
//	one-element list when it is a string and as empty otherwise.
//
// Outputs:
//
//	error - ErrInvalidArgument for an unknown mode. Nothing is applied.
func (b *BulkMutator) TagNodes(ids, tags []string, mode TagMode) (*BulkResult, error) {
	switch mode {
	case TagAdd, TagRemove, TagReplace:
	case "":
		mode = TagAdd
	default:
		return nil, fmt.Errorf("%w: unknown tag operation %q", ErrInvalidArgument, mode)
	}

	result := newBulkResult("tag_nodes", len(ids))
	for _, id := range ids {
		n, ok := b.store.nodeRef(id)
		if !ok {
			result.fail(id, ErrNodeNotFound)
			continue
		}
		if n.Attributes == nil {
			n.Attributes = NewObject()
		}
		current := currentTags(n.Attributes)
		var next []string
		switch mode {
		case TagAdd:
			next = dedupe(append(current, tags...))
		case TagRemove:
			drop := make(map[string]bool, len(tags))
			for _, t := range tags {
				drop[t] = true
			}
			for _, t := range current {
				if !drop[t] {
					next = append(next, t)
				}
			}
		case TagReplace:
			next = dedupe(tags)
		}
		n.Attributes.Set(TagsAttribute, ValueOf(append([]string{}, next...)))
		result.ok(id)
	}
	if result.SuccessCount > 0 {
		b.store.generation++
	}
	return result, nil
}

// ExportResult holds exported nodes and the ids that were not found.
type ExportResult struct {
	Nodes   []Node   `json:"nodes"`
	Missing []string `json:"missing"`
	Count   int      `json:"count"`
}

// ExportNodes returns copies of the requested nodes. It does not mutate.
func (b *BulkMutator) ExportNodes(ids []string) *ExportResult {
	out := &ExportResult{Nodes: []Node{}, Missing: []string{}}
	for _, id := range ids {
		n, ok := b.store.Node(id)
		if !ok {
			out.Missing = append(out.Missing, id)
			continue
		}
		out.Nodes = append(out.Nodes, n)
	}
	out.Count = len(out.Nodes)
	return out
}

func currentTags(attrs *Object) []string {
	v, ok := attrs.Get(TagsAttribute)
	if !ok {
		return nil
	}
	if s, isStr := v.AsString(); isStr {
		return []string{s}
	}
	list, isList := v.AsList()
	if !isList {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Text())
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, t := range items {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
