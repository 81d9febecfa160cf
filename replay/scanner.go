// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"bufio"
	"io"

	"github.com/danjacques/gomcreplay/archive"
	"github.com/danjacques/gomcreplay/protocol"

	"github.com/pkg/errors"
)

// scannerBufferSize is the read buffer for recording entries (4MB). Packet
// records are small and plentiful, so large sequential reads pay off.
const scannerBufferSize = 1024 * 1024 * 4

// Scanner is a lazy, single-pass reader over a container's recording entry.
//
// Each packet is tagged with the connection phase it was read in, inferred
// from identifiers observed so far (the container format begins in the Login
// phase). A Scanner is not restartable; open a new one to rescan.
type Scanner struct {
	src     io.ReadCloser
	br      *bufio.Reader
	tracker *protocol.PhaseTracker

	numPackets int64
	numBytes   int64
}

// NewScanner opens the recording entry of backend for scanning.
func NewScanner(backend archive.Reader) (*Scanner, error) {
	src, err := backend.OpenEntry(RecordingEntryName)
	if err != nil {
		return nil, errors.Wrap(err, "opening recording entry")
	}

	return &Scanner{
		src:     src,
		br:      bufio.NewReaderSize(src, scannerBufferSize),
		tracker: protocol.NewPhaseTracker(protocol.PhaseLogin),
	}, nil
}

// Next returns the next packet in the stream and the phase it was read in.
//
// Next returns io.EOF at the natural end of the stream. A stream that ends
// mid-record fails with ErrTruncatedRecord; the scan cannot continue past
// either condition.
func (s *Scanner) Next() (*Packet, protocol.Phase, error) {
	pkt, err := ReadPacket(s.br)
	if err != nil {
		return nil, s.tracker.Phase(), err
	}

	s.numPackets++
	s.numBytes += int64(pkt.EncodedLen())
	scannedPackets.Inc()

	return pkt, s.tracker.Observe(pkt.ID), nil
}

// Phase returns the phase the next packet will be read in.
func (s *Scanner) Phase() protocol.Phase { return s.tracker.Phase() }

// NumPackets returns the number of packets scanned so far.
func (s *Scanner) NumPackets() int64 { return s.numPackets }

// NumBytes returns the encoded size of the packets scanned so far.
func (s *Scanner) NumBytes() int64 { return s.numBytes }

// Close releases the scanner's underlying entry stream.
func (s *Scanner) Close() error { return s.src.Close() }
