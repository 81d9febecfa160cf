// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	scannedPackets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mcreplay_scanned_packets",
		Help: "Count of packets read from recording streams.",
	})

	writtenPackets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mcreplay_written_packets",
		Help: "Count of packets written to recording streams.",
	})

	mergeCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mcreplay_merges",
		Help: "Count of merge operations started.",
	})

	mergeDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mcreplay_merge_dropped_packets",
		Help: "Count of packets dropped during merges, by reason.",
	}, []string{"reason"})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		scannedPackets,
		writtenPackets,
		mergeCount,
		mergeDropped,
	)
}
