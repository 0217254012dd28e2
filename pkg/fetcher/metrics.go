// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	m "github.com/svsproto/svs/pkg/metrics"
)

// metrics groups the Fetcher's counters plus a lock-free gauge of the
// current in-flight request count, read outside f.mu on the hot path
// (bounded window W).
type metrics struct {
	Expressed prometheus.Counter
	Retries prometheus.Counter
	TimedOut prometheus.Counter
	Nacked prometheus.Counter
	ValidationFailures prometheus.Counter
	InFlight atomic.Int32
}

func newMetrics() metrics {
	const subsystem = "fetcher"

	return metrics{
		Expressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "requests_expressed",
			Help: "Total logical fetch requests expressed.",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "retries",
			Help: "Total retries issued, for either timeout or validation failure.",
		}),
		TimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "timed_out",
			Help: "Total requests that exhausted retries after a timeout.",
		}),
		Nacked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "nacked",
			Help: "Total requests terminated by a Nack.",
		}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "validation_failures",
			Help: "Total requests that exhausted retries after a validation failure.",
		}),
	}
}
