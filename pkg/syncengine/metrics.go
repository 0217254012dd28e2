// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syncengine

import (
	"github.com/prometheus/client_golang/prometheus"

	m "github.com/svsproto/svs/pkg/metrics"
)

type metrics struct {
	SyncInterestsSent prometheus.Counter
	SyncInterestsReceived prometheus.Counter
	SignatureFailures prometheus.Counter
	MissingRangesFound prometheus.Counter
	SuppressionsEntered prometheus.Counter
}

func newMetrics() metrics {
	const subsystem = "syncengine"

	return metrics{
		SyncInterestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "sync_interests_sent",
			Help: "Total sync interests multicast.",
		}),
		SyncInterestsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "sync_interests_received",
			Help: "Total sync interests received.",
		}),
		SignatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "signature_failures",
			Help: "Total sync interests dropped for signature failure.",
		}),
		MissingRangesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "missing_ranges_found",
			Help: "Total missing ranges discovered by merge.",
		}),
		SuppressionsEntered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "suppressions_entered",
			Help: "Total transitions into the Suppressing state.",
		}),
	}
}
