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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Default type labels applied when none is given.
const (
	DefaultNodeType = "Entity"
	DefaultEdgeType = "RELATED_TO"
)

// Reserved keys are carried by Node and Edge fields and never stored as
// attributes.
var (
	nodeReservedKeys = []string{"id", "type"}
	edgeReservedKeys = []string{"source", "target", "source_id", "target_id", "type"}
)

// Node is a vertex identified by ID.
type Node struct {
	// ID is the unique node identifier.
	ID string

	// Type is the node label, e.g. "User" or "Host".
	Type string

	// Attributes holds the open-ended attribute mapping.
	Attributes *Object
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	return Node{ID: n.ID, Type: n.Type, Attributes: n.Attributes.Clone()}
}

// Attr returns an attribute value. The pseudo-attributes "id" and "type"
// resolve to the node's fields.
func (n Node) Attr(key string) (Value, bool) {
	switch key {
	case "id":
		return String(n.ID), true
	case "type":
		return String(n.Type), true
	}
	return n.Attributes.Get(key)
}

// MarshalJSON renders the node as {"id":..,"type":..,...attributes}.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	writeJSONString(&buf, n.ID)
	buf.WriteString(`,"type":`)
	writeJSONString(&buf, n.Type)
	if err := n.Attributes.encodeMembers(&buf, true); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses the flat node shape. The id is required; a missing
// type defaults to DefaultNodeType.
func (n *Node) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	id, ok := identifier(obj, "id")
	if !ok {
		return fmt.Errorf("%w: node is missing id", ErrInvalidArgument)
	}
	nodeType, _ := identifier(obj, "type")
	if nodeType == "" {
		nodeType = DefaultNodeType
	}
	*n = Node{ID: id, Type: nodeType, Attributes: stripReserved(obj, nodeReservedKeys)}
	return nil
}

// Edge is a directed, typed relation between two node ids. Endpoints need
// not exist in the store.
type Edge struct {
	Source     string
	Target     string
	Type       string
	Attributes *Object
}

// Clone returns a deep copy of e.
func (e Edge) Clone() Edge {
	return Edge{Source: e.Source, Target: e.Target, Type: e.Type, Attributes: e.Attributes.Clone()}
}

// Key returns the identity used when diffing edges.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Type: e.Type}
}

// MarshalJSON renders the edge as {"source":..,"target":..,"type":..,...}.
func (e Edge) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"source":`)
	writeJSONString(&buf, e.Source)
	buf.WriteString(`,"target":`)
	writeJSONString(&buf, e.Target)
	buf.WriteString(`,"type":`)
	writeJSONString(&buf, e.Type)
	if err := e.Attributes.encodeMembers(&buf, true); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses the flat edge shape. "source_id" and "target_id" are
// accepted in place of "source" and "target".
func (e *Edge) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	source, ok := identifier(obj, "source")
	if !ok || source == "" {
		source, ok = identifier(obj, "source_id")
	}
	if !ok || source == "" {
		return fmt.Errorf("%w: edge is missing source", ErrInvalidArgument)
	}
	target, ok := identifier(obj, "target")
	if !ok || target == "" {
		target, ok = identifier(obj, "target_id")
	}
	if !ok || target == "" {
		return fmt.Errorf("%w: edge is missing target", ErrInvalidArgument)
	}
	edgeType, _ := identifier(obj, "type")
	if edgeType == "" {
		edgeType = DefaultEdgeType
	}
	*e = Edge{Source: source, Target: target, Type: edgeType, Attributes: stripReserved(obj, edgeReservedKeys)}
	return nil
}

// EdgeKey is the (source, target, type) triple identifying an edge across
// graphs.
type EdgeKey struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// String renders the key as "source->target:type".
func (k EdgeKey) String() string {
	return k.Source + "->" + k.Target + ":" + k.Type
}

// Snapshot is a self-contained value copy of a graph.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes: make([]Node, len(s.Nodes)),
		Edges: make([]Edge, len(s.Edges)),
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for i, e := range s.Edges {
		out.Edges[i] = e.Clone()
	}
	return out
}

// MarshalJSON renders empty collections as [] instead of null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	p := plain(s)
	if p.Nodes == nil {
		p.Nodes = []Node{}
	}
	if p.Edges == nil {
		p.Edges = []Edge{}
	}
	return json.Marshal(p)
}

// identifier reads key as a string. Numbers are formatted so that imports
// with numeric ids still work.
func identifier(obj *Object, key string) (string, bool) {
	v, ok := obj.Get(key)
	if !ok {
		return "", false
	}
	switch v.Kind() {
	case KindString:
		s, _ := v.AsString()
		return s, true
	case KindNumber:
		f, _ := v.AsNumber()
		return strconv.FormatFloat(f, 'f', -1, 64), true
	default:
		return "", false
	}
}

// stripReserved returns a copy of attrs without the given keys.
func stripReserved(attrs *Object, reserved []string) *Object {
	out := attrs.Clone()
	for _, k := range reserved {
		out.Delete(k)
	}
	return out
}

func writeJSONString(buf *bytes.Buffer, s string) {
	data, _ := json.Marshal(s)
	buf.Write(data)
}
