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
	"errors"
	"fmt"

	"github.com/wolftrace/wolftrace/services/wolftrace/collector"
	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
	"github.com/wolftrace/wolftrace/services/wolftrace/storage/badger"
	"github.com/wolftrace/wolftrace/services/wolftrace/templates"
)

// Sentinel errors for the WolfTrace service.
var (
	// ErrNotFound indicates a referenced node, session, template or
	// collector does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates malformed input. Decoding errors from the
	// graph package wrap the same sentinel.
	ErrInvalidArgument = graph.ErrInvalidArgument

	// ErrEmpty indicates there was nothing to act on.
	ErrEmpty = errors.New("empty")

	// ErrNothingToUndo indicates the history cursor is at the oldest entry.
	ErrNothingToUndo = fmt.Errorf("%w: nothing to undo", ErrEmpty)

	// ErrNothingToRedo indicates the history cursor is at the newest entry.
	ErrNothingToRedo = fmt.Errorf("%w: nothing to redo", ErrEmpty)

	// ErrSessionsDisabled indicates the service was built without a session
	// store.
	ErrSessionsDisabled = errors.New("sessions are not configured")
)

// translate maps errors from subpackages onto the service taxonomy so
// callers only need errors.Is against the sentinels above.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrEmpty):
		return err
	case errors.Is(err, badger.ErrSessionNotFound),
		errors.Is(err, templates.ErrTemplateNotFound),
		errors.Is(err, collector.ErrUnknownCollector):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}
