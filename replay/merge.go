// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"io"

	"github.com/danjacques/gomcreplay/archive"
	"github.com/danjacques/gomcreplay/protocol"
	"github.com/danjacques/gomcreplay/support/logging"

	"github.com/pkg/errors"
)

// DefaultRespawnID is the clientbound respawn/world-reset identifier for the
// protocol generation this tool was written against. The value is
// protocol-version-specific; set Merger.RespawnID when working with other
// versions.
const DefaultRespawnID int32 = 0x45

// Generator is the tag stamped into the metadata of merged containers.
const Generator = "gomcreplay"

// Visitor observes each admitted packet during a merge.
//
// Returning true stops the merge after the current packet: no further input
// is read, the open output entry is finalized, and no metadata is written.
// Callers that need output metadata must let the merge run to completion.
//
// The Merger invokes the visitor from its own goroutine only; a visitor
// shared across concurrent merges must synchronize its own state.
type Visitor func(phase protocol.Phase, pkt *Packet) (stop bool)

// Merger stitches one or more replay containers into a single timeline.
//
// Inputs are processed strictly in list order. Every packet is re-based onto
// the output timeline by a running offset derived from each input's declared
// duration plus Interval, so stream gaps are deterministic even when an
// input's packet stream under- or over-runs its declared duration.
//
// Packets from inputs after the first are additionally suppressed unless
// they were captured in the Play phase, and the RespawnID packet is dropped
// from them even within Play: a later recording's re-login sequence and
// world reset must not replay into the session established by the first
// input.
type Merger struct {
	// Mask is the identifier admit policy. A nil mask admits everything.
	Mask *FilterMask

	// Interval is the gap, in milliseconds, inserted between consecutive
	// inputs on the output timeline.
	Interval uint32

	// RespawnID is the world-reset identifier suppressed from non-first
	// inputs. A negative value disables the suppression.
	RespawnID int32

	// Visitor, if not nil, is invoked once per admitted packet.
	Visitor Visitor

	// Logger, if not nil, receives merge progress logs.
	Logger logging.L
}

// NewMerger returns a Merger with the default respawn identifier.
func NewMerger(mask *FilterMask) *Merger {
	return &Merger{
		Mask:      mask,
		RespawnID: DefaultRespawnID,
	}
}

// Merge combines inputs into output.
//
// output may be nil, in which case admitted packets are only offered to the
// visitor (dry-run/statistics mode). On natural completion the accumulated
// metadata is written to output exactly once and returned. If the visitor
// stopped the merge early, Merge returns (nil, nil) and writes no metadata.
//
// Any backend failure aborts the merge with that error. Output already
// written is left as-is; there is no partial-success mode and no rollback.
func (m *Merger) Merge(inputs []archive.Reader, output archive.Writer) (*MetaData, error) {
	logger := logging.Must(m.Logger)
	mergeCount.Inc()

	var out *Writer
	if output != nil {
		out = NewWriter(output)
	}

	var (
		offset        uint32
		totalDuration uint64
		merged        *MetaData
		stopped       bool
	)

	for i, in := range inputs {
		first := i == 0
		if !first {
			offset += m.Interval
			totalDuration += uint64(m.Interval)
		}

		stop, err := m.mergeInput(in, first, offset, out)
		if err != nil {
			// No rollback: flush whatever was forwarded before the failure so
			// the output entry retains it.
			m.finalize(out)
			return nil, errors.Wrapf(err, "merging input #%d", i)
		}
		if stop {
			stopped = true
			break
		}

		// The input's own declared duration drives the running offset, not
		// its last packet timestamp.
		md, err := ReadMetadata(in)
		if err != nil {
			m.finalize(out)
			return nil, errors.Wrapf(err, "reading metadata for input #%d", i)
		}

		if merged == nil {
			base := *md
			base.Players = md.Players.Clone()
			merged = &base
		} else {
			merged.Players.Union(md.Players)
		}

		offset += uint32(md.Duration)
		totalDuration += md.Duration

		logger.Debugf("merged input #%d: duration %d, %d participants", i, md.Duration, len(md.Players))
	}

	if out != nil {
		// Finalize the recording entry even on early stop; whatever was
		// forwarded before the stop remains valid output.
		if err := out.FinishPackets(); err != nil {
			return nil, err
		}
	}

	if stopped {
		logger.Info("merge stopped early by visitor; skipping metadata")
		return nil, nil
	}

	if merged == nil {
		merged = DefaultMetaData()
	}
	merged.Duration = totalDuration
	merged.FileFormat = FileFormat
	merged.FileFormatVersion = FileFormatVersion
	merged.Generator = Generator

	if out != nil {
		if err := out.WriteMetadata(merged); err != nil {
			return nil, errors.Wrap(err, "writing merged metadata")
		}
		logger.Infof("wrote %d packets (%d bytes)", out.NumPackets(), out.NumBytes())
	}
	return merged, nil
}

// finalize closes the open output entry, discarding any error; it is used on
// abort paths where the original error takes precedence.
func (m *Merger) finalize(out *Writer) {
	if out != nil {
		if err := out.FinishPackets(); err != nil {
			logging.Must(m.Logger).Warnf("finalizing output after failure: %s", err)
		}
	}
}

// mergeInput streams one input's packets onto the output timeline.
func (m *Merger) mergeInput(in archive.Reader, first bool, offset uint32, out *Writer) (stopped bool, err error) {
	sc, err := NewScanner(in)
	if err != nil {
		return false, err
	}
	defer func() {
		closeErr := sc.Close()
		if err == nil {
			err = closeErr
		}
	}()

	for {
		pkt, phase, err := sc.Next()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		pkt.Time += offset

		if !m.admits(pkt, phase, first) {
			continue
		}

		if out != nil {
			if err := out.WritePacket(pkt); err != nil {
				return false, err
			}
		}
		if m.Visitor != nil && m.Visitor(phase, pkt) {
			return true, nil
		}
	}
}

// admits applies the filter mask and the non-first-input suppression rules.
func (m *Merger) admits(pkt *Packet, phase protocol.Phase, first bool) bool {
	if !first {
		// Later inputs: only established-session traffic survives. Earlier
		// phases carry re-handshake and re-login sequences, and the respawn
		// packet would reset state the first input already established.
		if phase != protocol.PhasePlay {
			mergeDropped.WithLabelValues("phase").Inc()
			return false
		}
		if m.RespawnID >= 0 && pkt.ID == m.RespawnID {
			mergeDropped.WithLabelValues("respawn").Inc()
			return false
		}
	}

	if m.Mask != nil && !m.Mask.Admits(pkt.ID) {
		mergeDropped.WithLabelValues("filter").Inc()
		return false
	}
	return true
}
