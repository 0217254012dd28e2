// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"github.com/prometheus/client_golang/prometheus"

	m "github.com/svsproto/svs/pkg/metrics"
)

// metrics groups the Store's counters and its current-size gauge.
type metrics struct {
	Inserts prometheus.Counter
	Evictions prometheus.Counter
	Entries prometheus.Gauge
}

func newMetrics() metrics {
	const subsystem = "store"

	return metrics{
		Inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "inserts",
			Help: "Total Data packets inserted.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "evictions",
			Help: "Total Data packets evicted to respect a max-entries cap.",
		}),
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "entries",
			Help: "Current number of stored Data packets.",
		}),
	}
}
