// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the in-memory typed multigraph behind WolfTrace
// and the analyses that read it.
//
// The Store holds nodes keyed by id and an append-only list of directed,
// typed edges. Edges may reference ids that are not (yet) nodes; such
// dangling edges are kept but never traversed.
//
// # Ownership Model
//
// Every read returns value copies. Callers may mutate returned nodes,
// edges and snapshots freely without affecting the store, and the store
// never retains attribute objects passed to it.
//
// # Thread Safety
//
// Store is NOT safe for concurrent use. The owning service serializes
// writers and holds a read lock around analyses.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrInvalidArgument indicates malformed input, such as an unknown tag
	// mode or a node without an id.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNodeNotFound indicates the requested node does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound indicates no edge matched a selector.
	ErrEdgeNotFound = errors.New("edge not found")
)
