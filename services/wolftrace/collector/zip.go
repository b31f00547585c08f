// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

// MaxZipMemberBytes bounds the decompressed size of one archive member.
const MaxZipMemberBytes = 64 << 20

// ZipResult is the outcome of merging a collection archive.
type ZipResult struct {
	// Merged is the combined document, ready for Collector.Parse.
	Merged []byte

	// Files lists the members that were merged, in merge order.
	Files []string

	// Skipped lists JSON members that could not be read or decoded.
	Skipped []string
}

// MergeZip reads every *.json member of a zip archive and merges them with
// graph.MergeValues in archive order: objects merge key by key, arrays
// concatenate and later scalars win, so a collection split across files
// becomes one document.
//
// Members that fail to decode are recorded in Skipped. An archive without a
// single valid JSON member is an error wrapping graph.ErrInvalidArgument.
func MergeZip(r io.ReaderAt, size int64) (*ZipResult, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: read zip: %v", graph.ErrInvalidArgument, err)
	}

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".json") {
			continue
		}
		files = append(files, f)
	}

	result := &ZipResult{}
	merged := graph.Null()
	for _, f := range files {
		v, err := readMember(f)
		if err != nil {
			result.Skipped = append(result.Skipped, f.Name)
			continue
		}
		merged = graph.MergeValues(merged, v)
		result.Files = append(result.Files, f.Name)
	}
	if len(result.Files) == 0 {
		return nil, fmt.Errorf("%w: no valid JSON files in archive", graph.ErrInvalidArgument)
	}

	result.Merged, err = json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged archive: %w", err)
	}
	return result, nil
}

func readMember(f *zip.File) (graph.Value, error) {
	rc, err := f.Open()
	if err != nil {
		return graph.Value{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxZipMemberBytes+1))
	if err != nil {
		return graph.Value{}, err
	}
	if len(data) > MaxZipMemberBytes {
		return graph.Value{}, fmt.Errorf("%s exceeds %d bytes", f.Name, MaxZipMemberBytes)
	}
	var v graph.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return graph.Value{}, err
	}
	return v, nil
}
