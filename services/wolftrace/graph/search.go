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
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultSearchLimit is used when no positive limit is given.
const DefaultSearchLimit = 50

// Search returns nodes whose id or attribute text contains query,
// case-insensitively.
//
// String attributes are matched directly; lists and objects are matched
// against their JSON text. Numbers and booleans are not searched.
func (s *Store) Search(ctx context.Context, query, nodeType string, limit int) ([]Node, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	} else if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	ctx, span := startAnalysisSpan(ctx, "Search",
		attribute.String("graph.node_type", nodeType),
		attribute.Int("graph.limit", limit),
	)
	defer span.End()
	start := time.Now()

	src := s.nodes
	if nodeType != "" {
		src = s.nodesByType[nodeType]
	}
	results := []Node{}
	for _, n := range src {
		if len(results) >= limit {
			break
		}
		if nodeMatchesText(n, query) {
			results = append(results, n.Clone())
		}
	}

	recordAnalysis(ctx, "search", time.Since(start), len(results))
	return results, nil
}

func nodeMatchesText(n *Node, query string) bool {
	if strings.Contains(strings.ToLower(n.ID), query) {
		return true
	}
	if strings.Contains(strings.ToLower(n.Type), query) {
		return true
	}
	found := false
	n.Attributes.Range(func(_ string, v Value) bool {
		switch v.Kind() {
		case KindString, KindList, KindObject:
			if strings.Contains(strings.ToLower(v.Text()), query) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
