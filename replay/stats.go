// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"sort"
	"sync"

	"github.com/danjacques/gomcreplay/protocol"
)

// PacketStat is the accumulated count and payload size for one identifier.
type PacketStat struct {
	ID    int32
	Count int64
	Bytes int64
}

// AvgBytes returns the mean payload size for this identifier.
func (s *PacketStat) AvgBytes() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Bytes) / float64(s.Count)
}

// PacketStats accumulates per-identifier statistics.
//
// Observe matches the Visitor signature, so a PacketStats can be handed
// directly to a Merger. The accumulator is internally synchronized and may
// be shared by visitors of concurrent merges.
type PacketStats struct {
	mu    sync.Mutex
	stats map[int32]*PacketStat
}

// Observe records pkt. It never stops the merge.
func (ps *PacketStats) Observe(phase protocol.Phase, pkt *Packet) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.stats == nil {
		ps.stats = make(map[int32]*PacketStat)
	}
	st := ps.stats[pkt.ID]
	if st == nil {
		st = &PacketStat{ID: pkt.ID}
		ps.stats[pkt.ID] = st
	}

	st.Count++
	st.Bytes += int64(len(pkt.Data))
	return false
}

// Rows returns a snapshot of the accumulated statistics, ordered by
// descending count with identifier as the tiebreak.
func (ps *PacketStats) Rows() []PacketStat {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	rows := make([]PacketStat, 0, len(ps.stats))
	for _, st := range ps.stats {
		rows = append(rows, *st)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}
