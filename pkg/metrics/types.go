// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics centralizes the prometheus namespace and type aliases
// every component's metrics.go uses, the same role bee's pkg/metrics
// plays for pullsync/retrieval/pss — trimmed to drop bee's opencensus
// exporter and registry scaffolding, which nothing in this module needs.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace is prefixed before every metric name.
const Namespace = "svs"

// Prometheus type aliases, so individual packages only need to import
// this package rather than prometheus directly.
type (
	Collector      = prometheus.Collector
	Counter        = prometheus.Counter
	CounterOpts    = prometheus.CounterOpts
	CounterVec     = prometheus.CounterVec
	Gauge          = prometheus.Gauge
	GaugeOpts      = prometheus.GaugeOpts
	GaugeVec       = prometheus.GaugeVec
	Histogram      = prometheus.Histogram
	HistogramOpts  = prometheus.HistogramOpts
)

// NewCounter is a thin pass-through, kept so packages can depend on
// metrics.NewCounter instead of prometheus directly (bee's own convention).
func NewCounter(opts CounterOpts) Counter { return prometheus.NewCounter(opts) }

// NewGauge is the Gauge equivalent of NewCounter.
func NewGauge(opts GaugeOpts) Gauge { return prometheus.NewGauge(opts) }

// NewHistogram is the Histogram equivalent of NewCounter.
func NewHistogram(opts HistogramOpts) Histogram { return prometheus.NewHistogram(opts) }
