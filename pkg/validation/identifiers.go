// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-provided identifiers before they reach
// file paths or database keys.
//
// Template ids become file names and session ids become BadgerDB keys;
// validating them here prevents path traversal and key-space collisions.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// slugPattern matches template and collector identifiers.
// Allows: lowercase letters, digits, hyphens and underscores.
// Max length: 64 characters.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]{0,63}$`)

// ValidateSlug validates an identifier used as a file name.
//
// Returns an error if the identifier is empty, too long, or contains
// anything other than lowercase alphanumerics, '-' and '_'.
//
// Example:
//
//	if err := validation.ValidateSlug(templateID); err != nil {
//	    return fmt.Errorf("invalid template id: %w", err)
//	}
//	path := filepath.Join(dir, templateID+".yaml") // safe
func ValidateSlug(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !slugPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier %q (must be 1-64 lowercase alphanumeric chars, '-' or '_')", id)
	}
	return nil
}

// Slugify derives a valid slug from a display name, e.g. "Corp Network"
// becomes "corp-network". It returns an error if nothing usable remains.
func Slugify(name string) (string, error) {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > 64 {
		slug = strings.TrimRight(slug[:64], "-")
	}
	if err := ValidateSlug(slug); err != nil {
		return "", fmt.Errorf("cannot derive identifier from %q: %w", name, err)
	}
	return slug, nil
}

// ValidateSessionID validates a session identifier, which must be a UUID.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session id %q: %w", id, err)
	}
	return nil
}
