package indexlib

import "github.com/hupe1980/indexlib/metrics"

// MetricsCollector receives operational metrics of a table.
// See metrics.NewPrometheus for a Prometheus implementation.
type MetricsCollector = metrics.Collector

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector = metrics.Noop

// BasicMetricsCollector counts operations in memory.
type BasicMetricsCollector = metrics.Basic
