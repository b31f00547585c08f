// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolftrace/wolftrace/pkg/ux"
	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

// maxListed bounds per-bucket listings in diff output.
const maxListed = 20

func newAnalyzeCmd() *cobra.Command {
	var maxCommunities int
	cmd := &cobra.Command{
		Use:   "analyze <snapshot.json>",
		Short: "Print statistics and communities of a saved graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			return analyze(cmd, ux.NewPrinter(cmd.OutOrStdout()), args[0], snap, maxCommunities)
		},
	}
	cmd.Flags().IntVar(&maxCommunities, "max-communities", graph.DefaultMaxCommunities, "maximum communities to report")
	return cmd
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <before.json> <after.json>",
		Short: "Compare two saved graphs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			after, err := readSnapshot(args[1])
			if err != nil {
				return err
			}
			printDiff(ux.NewPrinter(cmd.OutOrStdout()), args[0], args[1], graph.CompareGraphs(before, after))
			return nil
		},
	}
}

// readSnapshot loads {"nodes": [...], "edges": [...]} from path, or from
// stdin when path is "-".
func readSnapshot(path string) (graph.Snapshot, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return graph.Snapshot{}, err
		}
		defer f.Close()
		r = f
	}
	var snap graph.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return graph.Snapshot{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return snap, nil
}

func analyze(cmd *cobra.Command, p *ux.Printer, name string, snap graph.Snapshot, maxCommunities int) error {
	ctx := cmd.Context()
	store := graph.NewStore()
	store.Restore(snap)

	stats := store.Statistics(ctx)
	p.Title("Graph analysis: " + name)
	p.KV(
		"nodes", stats.NodeCount,
		"edges", stats.EdgeCount,
		"density", strconv.FormatFloat(stats.Density, 'f', 4, 64),
		"average degree", strconv.FormatFloat(stats.AverageDegree, 'f', 2, 64),
		"isolated nodes", stats.IsolatedNodes,
		"dangling edges", stats.DanglingEdges,
		"components", stats.ComponentCount,
	)

	if len(stats.NodesByType) > 0 {
		p.Section("Node types")
		p.Table([]string{"type", "count"}, countRows(stats.NodesByType))
	}
	if len(stats.EdgesByType) > 0 {
		p.Section("Edge types")
		p.Table([]string{"type", "count"}, countRows(stats.EdgesByType))
	}
	if len(stats.TopNodes) > 0 {
		p.Section("Most connected")
		rows := make([][]string, 0, len(stats.TopNodes))
		for _, d := range stats.TopNodes {
			rows = append(rows, []string{d.ID, d.Type, strconv.Itoa(d.Degree), strconv.Itoa(d.InDegree), strconv.Itoa(d.OutDegree)})
		}
		p.Table([]string{"id", "type", "degree", "in", "out"}, rows)
	}

	communities := store.FindCommunities(ctx, maxCommunities)
	p.Section(fmt.Sprintf("Communities (%d of %d components)", communities.Count, communities.ComponentCount))
	rows := make([][]string, 0, len(communities.Communities))
	for _, c := range communities.Communities {
		rows = append(rows, []string{strconv.Itoa(c.ID), strconv.Itoa(c.Size), preview(c.Members, 5)})
	}
	p.Table([]string{"id", "size", "members"}, rows)
	return nil
}

func printDiff(p *ux.Printer, a, b string, c *graph.Comparison) {
	s := c.Summary
	p.Title(fmt.Sprintf("Diff: %s → %s", a, b))
	p.KV(
		"nodes", fmt.Sprintf("%d → %d", s.Graph1Nodes, s.Graph2Nodes),
		"edges", fmt.Sprintf("%d → %d", s.Graph1Edges, s.Graph2Edges),
	)
	p.Table(
		[]string{"", "added", "removed", "changed", "unchanged"},
		[][]string{
			{"nodes", strconv.Itoa(s.AddedNodes), strconv.Itoa(s.RemovedNodes), strconv.Itoa(s.ChangedNodes), strconv.Itoa(s.UnchangedNodes)},
			{"edges", strconv.Itoa(s.AddedEdges), strconv.Itoa(s.RemovedEdges), strconv.Itoa(s.ChangedEdges), strconv.Itoa(s.UnchangedEdges)},
		},
	)

	if s.AddedNodes+s.RemovedNodes+s.ChangedNodes > 0 {
		p.Section("Nodes")
		listed := 0
		for _, n := range c.AddedNodes {
			if listed++; listed <= maxListed {
				p.Line(ux.ToneAdded, "%s (%s)", n.ID, n.Type)
			}
		}
		for _, n := range c.RemovedNodes {
			if listed++; listed <= maxListed {
				p.Line(ux.ToneRemoved, "%s (%s)", n.ID, n.Type)
			}
		}
		for _, ch := range c.ChangedNodes {
			if listed++; listed <= maxListed {
				p.Line(ux.ToneChanged, "%s: %s", ch.ID, describeChange(ch))
			}
		}
		if listed > maxListed {
			p.Muted("  ... %d more", listed-maxListed)
		}
	}

	if s.AddedEdges+s.RemovedEdges+s.ChangedEdges > 0 {
		p.Section("Edges")
		listed := 0
		for _, e := range c.AddedEdges {
			if listed++; listed <= maxListed {
				p.Line(ux.ToneAdded, "%s", e.Key())
			}
		}
		for _, e := range c.RemovedEdges {
			if listed++; listed <= maxListed {
				p.Line(ux.ToneRemoved, "%s", e.Key())
			}
		}
		for _, ch := range c.ChangedEdges {
			if listed++; listed <= maxListed {
				p.Line(ux.ToneChanged, "%s: %s", ch.Key, strings.Join(ch.ChangedKeys, ", "))
			}
		}
		if listed > maxListed {
			p.Muted("  ... %d more", listed-maxListed)
		}
	}
}

func describeChange(ch graph.NodeChange) string {
	parts := make([]string, 0, len(ch.ChangedKeys)+1)
	if ch.TypeChanged {
		parts = append(parts, fmt.Sprintf("type %s → %s", ch.Before.Type, ch.After.Type))
	}
	parts = append(parts, ch.ChangedKeys...)
	return strings.Join(parts, ", ")
}

func countRows(m map[string]int) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(m[k])})
	}
	return rows
}

func preview(ids []string, n int) string {
	if len(ids) <= n {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s, +%d", strings.Join(ids[:n], ", "), len(ids)-n)
}
