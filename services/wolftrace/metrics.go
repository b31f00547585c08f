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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationTotal counts mutations by operation and result
	mutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wolftrace_mutation_total",
		Help: "Total graph mutations by operation and result",
	}, []string{"operation", "result"})

	// mutationDuration tracks the mutate-then-snapshot latency
	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wolftrace_mutation_duration_seconds",
		Help:    "Mutation duration including the history snapshot",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	}, []string{"operation"})

	// graphNodes and graphEdges track the current graph size
	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wolftrace_graph_nodes",
		Help: "Number of nodes in the graph",
	})
	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wolftrace_graph_edges",
		Help: "Number of edges in the graph",
	})

	// historyEntries tracks the number of retained snapshots
	historyEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wolftrace_history_entries",
		Help: "Number of snapshots in the undo history",
	})

	// analyticsShared counts reads answered by an in-flight computation
	analyticsShared = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wolftrace_analytics_shared_total",
		Help: "Analytics requests served from a concurrent identical computation",
	}, []string{"analysis"})

	eventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wolftrace_event_subscribers",
		Help: "Connected change-event subscribers",
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wolftrace_event_subscribers_dropped_total",
		Help: "Subscribers disconnected for falling behind",
	})

	// rateLimited counts requests rejected by the mutation limiter
	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wolftrace_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)
