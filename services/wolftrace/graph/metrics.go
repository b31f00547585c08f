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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("wolftrace.graph")
	meter  = otel.Meter("wolftrace.graph")
)

var (
	analysisLatency metric.Float64Histogram
	analysisResults metric.Int64Histogram
	analysisTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analysisLatency, err = meter.Float64Histogram(
			"wolftrace_graph_analysis_duration_seconds",
			metric.WithDescription("Duration of graph analyses"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analysisResults, err = meter.Int64Histogram(
			"wolftrace_graph_analysis_results",
			metric.WithDescription("Number of results produced per analysis"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analysisTotal, err = meter.Int64Counter(
			"wolftrace_graph_analysis_total",
			metric.WithDescription("Total number of graph analyses"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordAnalysis records latency and result size for one analysis run.
func recordAnalysis(ctx context.Context, kind string, duration time.Duration, resultCount int) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("analysis", kind))
	analysisLatency.Record(ctx, duration.Seconds(), attrs)
	analysisResults.Record(ctx, int64(resultCount), attrs)
	analysisTotal.Add(ctx, 1, attrs)
}

// startAnalysisSpan creates a span for an analysis over the store.
func startAnalysisSpan(ctx context.Context, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("graph.analysis", kind))
	return tracer.Start(ctx, "Graph."+kind, trace.WithAttributes(attrs...))
}
