// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"

	m "github.com/svsproto/svs/pkg/metrics"
)

// metrics groups the Pub/Sub Facade's counters.
type metrics struct {
	Published prometheus.Counter
	Segmented prometheus.Counter
	Delivered prometheus.Counter
	BlobsAssembled prometheus.Counter
	AssemblyAborted prometheus.Counter
	MappingQueries prometheus.Counter
}

func newMetrics() metrics {
	const subsystem = "pubsub"

	return metrics{
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "published",
			Help: "Total publications made through Publish.",
		}),
		Segmented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "segmented",
			Help: "Total publications large enough to require segmentation.",
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "delivered",
			Help: "Total deliveries to a subscriber callback.",
		}),
		BlobsAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "blobs_assembled",
			Help: "Total segmented publications successfully reassembled.",
		}),
		AssemblyAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "assembly_aborted",
			Help: "Total segmented publications abandoned after a segment fetch or validation failure.",
		}),
		MappingQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name: "mapping_queries",
			Help: "Total mapping queries issued to resolve unmatched prefix subscriptions.",
		}),
	}
}
