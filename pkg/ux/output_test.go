// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	assert.True(t, p.plain)
}

func TestPrinter_Title(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).Title("Graph")
	assert.Equal(t, "Graph\n=====\n", buf.String())
}

func TestPrinter_KVAligns(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).KV("nodes", 3, "density", 0.5)
	assert.Equal(t, "  nodes    3\n  density  0.5\n", buf.String())
}

func TestPrinter_Lines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)
	p.Line(ToneAdded, "node %s", "a")
	p.Line(ToneChanged, "node %s", "b")
	p.Line(ToneRemoved, "node %s", "c")
	p.Line(ToneNeutral, "node %s", "d")
	assert.Equal(t, "+ node a\n~ node b\n- node c\n  node d\n", buf.String())
}

func TestPrinter_PlainTable(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).Table([]string{"id", "degree"}, [][]string{{"a", "2"}, {"b", "1"}})
	assert.Equal(t, "id\tdegree\na\t2\nb\t1\n", buf.String())
}

func TestPrinter_StyledTableContainsCells(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf}
	p.Table([]string{"id"}, [][]string{{"alpha"}})
	assert.Contains(t, buf.String(), "alpha")
}
