// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package templates provides reusable graph fragments.
//
// A template is a YAML document declaring nodes, edges and variables.
// Any string in an id, type or attribute may contain {{name}} placeholders
// that are replaced when the template is rendered:
//
//	id: network-segment
//	name: Network Segment
//	variables:
//	  - name: subnet
//	    default: "10.0.0"
//	nodes:
//	  - id: "{{subnet}}.1"
//	    type: Router
//
// Built-in templates are compiled into the binary. User templates live in a
// directory, one file per template named {id}.yaml, and can be reloaded
// when that directory changes.
package templates

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wolftrace/wolftrace/pkg/validation"
	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

var (
	// ErrTemplateNotFound is returned for an unknown template id.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidTemplate is returned for templates that fail validation or
	// cannot be rendered. It wraps graph.ErrInvalidArgument.
	ErrInvalidTemplate = fmt.Errorf("%w: invalid template", graph.ErrInvalidArgument)
)

// placeholder matches {{name}} with optional inner whitespace.
var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

var templateValidate *validator.Validate

func init() {
	templateValidate = validator.New()
	_ = templateValidate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return validation.ValidateSlug(fl.Field().String()) == nil
	})
}

// Variable is a named placeholder. A nil Default makes the variable
// required at render time.
type Variable struct {
	Name        string  `yaml:"name" json:"name" validate:"required,max=64"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Default     *string `yaml:"default,omitempty" json:"default,omitempty"`
}

// NodeSpec is a node declaration inside a template.
type NodeSpec struct {
	ID         string         `yaml:"id" json:"id" validate:"required"`
	Type       string         `yaml:"type,omitempty" json:"type,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// EdgeSpec is an edge declaration inside a template.
type EdgeSpec struct {
	Source     string         `yaml:"source" json:"source" validate:"required"`
	Target     string         `yaml:"target" json:"target" validate:"required"`
	Type       string         `yaml:"type,omitempty" json:"type,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Template is a parameterized graph fragment.
type Template struct {
	ID          string     `yaml:"id" json:"id" validate:"required,slug"`
	Name        string     `yaml:"name" json:"name" validate:"required,max=128"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Variables   []Variable `yaml:"variables,omitempty" json:"variables,omitempty" validate:"dive"`
	Nodes       []NodeSpec `yaml:"nodes" json:"nodes" validate:"min=1,dive"`
	Edges       []EdgeSpec `yaml:"edges,omitempty" json:"edges,omitempty" validate:"dive"`

	// Builtin is set for templates compiled into the binary.
	Builtin bool `yaml:"-" json:"builtin"`
}

// Summary is the listing view of a template.
type Summary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Variables   []Variable `json:"variables,omitempty"`
	NodeCount   int        `json:"node_count"`
	EdgeCount   int        `json:"edge_count"`
	Builtin     bool       `json:"builtin"`
}

// Summary returns the listing view of t.
func (t *Template) Summary() Summary {
	return Summary{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Variables:   t.Variables,
		NodeCount:   len(t.Nodes),
		EdgeCount:   len(t.Edges),
		Builtin:     t.Builtin,
	}
}

// Validate checks struct constraints and that every placeholder used by the
// template refers to a declared variable.
func (t *Template) Validate() error {
	if err := templateValidate.Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	declared := make(map[string]bool, len(t.Variables))
	for _, v := range t.Variables {
		if declared[v.Name] {
			return fmt.Errorf("%w: variable %q declared twice", ErrInvalidTemplate, v.Name)
		}
		declared[v.Name] = true
	}
	for _, name := range t.placeholders() {
		if !declared[name] {
			return fmt.Errorf("%w: placeholder {{%s}} has no variable declaration", ErrInvalidTemplate, name)
		}
	}
	return nil
}

// Parse decodes and validates a YAML template. fallbackID is used when the
// document has no id, typically the file name stem.
func Parse(data []byte, fallbackID string) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if t.ID == "" {
		t.ID = fallbackID
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Marshal encodes t as YAML.
func (t *Template) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// Render substitutes variables and returns the resulting records.
//
// Values in vars override declared defaults. A required variable without a
// value is an error. Variables that the template does not declare are
// ignored.
func (t *Template) Render(vars map[string]string) (graph.Snapshot, error) {
	values := make(map[string]string, len(t.Variables))
	var missing []string
	for _, v := range t.Variables {
		if val, ok := vars[v.Name]; ok {
			values[v.Name] = val
			continue
		}
		if v.Default == nil {
			missing = append(missing, v.Name)
			continue
		}
		values[v.Name] = *v.Default
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return graph.Snapshot{}, fmt.Errorf("%w: missing variables %s", ErrInvalidTemplate, strings.Join(missing, ", "))
	}

	sub := func(s string) string {
		return placeholder.ReplaceAllStringFunc(s, func(m string) string {
			return values[placeholder.FindStringSubmatch(m)[1]]
		})
	}

	snap := graph.Snapshot{
		Nodes: make([]graph.Node, 0, len(t.Nodes)),
		Edges: make([]graph.Edge, 0, len(t.Edges)),
	}
	for _, n := range t.Nodes {
		id := sub(n.ID)
		if id == "" {
			return graph.Snapshot{}, fmt.Errorf("%w: node id %q renders empty", ErrInvalidTemplate, n.ID)
		}
		nodeType := sub(n.Type)
		if nodeType == "" {
			nodeType = graph.DefaultNodeType
		}
		snap.Nodes = append(snap.Nodes, graph.Node{ID: id, Type: nodeType, Attributes: renderAttrs(n.Attributes, sub)})
	}
	for _, e := range t.Edges {
		edgeType := sub(e.Type)
		if edgeType == "" {
			edgeType = graph.DefaultEdgeType
		}
		snap.Edges = append(snap.Edges, graph.Edge{
			Source:     sub(e.Source),
			Target:     sub(e.Target),
			Type:       edgeType,
			Attributes: renderAttrs(e.Attributes, sub),
		})
	}
	return snap, nil
}

// placeholders returns the distinct variable names used anywhere in t.
func (t *Template) placeholders() []string {
	seen := make(map[string]bool)
	var out []string
	collect := func(s string) {
		for _, m := range placeholder.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	for _, n := range t.Nodes {
		collect(n.ID)
		collect(n.Type)
		walkStrings(n.Attributes, collect)
	}
	for _, e := range t.Edges {
		collect(e.Source)
		collect(e.Target)
		collect(e.Type)
		walkStrings(e.Attributes, collect)
	}
	return out
}

func renderAttrs(attrs map[string]any, sub func(string) string) *graph.Object {
	if len(attrs) == 0 {
		return nil
	}
	obj, _ := graph.ValueOf(substitute(attrs, sub)).AsObject()
	return obj
}

// substitute returns a copy of v with sub applied to every string.
func substitute(v any, sub func(string) string) any {
	switch t := v.(type) {
	case string:
		return sub(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = substitute(e, sub)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = substitute(e, sub)
		}
		return out
	default:
		return v
	}
}

func walkStrings(v any, fn func(string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case []any:
		for _, e := range t {
			walkStrings(e, fn)
		}
	case map[string]any:
		for _, e := range t {
			walkStrings(e, fn)
		}
	}
}
