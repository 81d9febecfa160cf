// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"bufio"
	"io"

	"github.com/danjacques/gomcreplay/archive"

	"github.com/pkg/errors"
)

// Writer writes a replay container to a backend.
//
// The recording entry is opened on the first packet write, or by
// FinishPackets if no packet was ever written: a finished container always
// carries its recording entry, even an empty one, so it stays readable. The
// entry must be finished before the metadata entry can be written; archive
// backends are sequential-write-only, and Writer preserves that ordering for
// directory backends too so behavior does not depend on the backend chosen.
type Writer struct {
	backend archive.Writer

	sink io.WriteCloser
	bw   *bufio.Writer

	numPackets int64
	numBytes   int64
	finished   bool
}

// NewWriter returns a Writer over backend.
func NewWriter(backend archive.Writer) *Writer {
	return &Writer{backend: backend}
}

// WritePacket appends p to the recording entry.
func (w *Writer) WritePacket(p *Packet) error {
	if w.finished {
		return errors.New("replay: recording entry already finished")
	}

	if err := w.ensureSink(); err != nil {
		return err
	}

	if err := WritePacket(w.bw, p); err != nil {
		return err
	}

	w.numPackets++
	w.numBytes += int64(p.EncodedLen())
	writtenPackets.Inc()
	return nil
}

// NumPackets returns the number of packets written so far.
func (w *Writer) NumPackets() int64 { return w.numPackets }

// NumBytes returns the encoded size of the packets written so far.
func (w *Writer) NumBytes() int64 { return w.numBytes }

func (w *Writer) ensureSink() error {
	if w.sink != nil {
		return nil
	}

	sink, err := w.backend.CreateEntry(RecordingEntryName)
	if err != nil {
		return errors.Wrap(err, "creating recording entry")
	}
	w.sink = sink
	w.bw = bufio.NewWriter(sink)
	return nil
}

// FinishPackets flushes and closes the recording entry, creating it empty if
// no packet was ever written.
//
// FinishPackets is idempotent.
func (w *Writer) FinishPackets() error {
	if w.finished {
		return nil
	}

	if err := w.ensureSink(); err != nil {
		return err
	}
	w.finished = true

	if err := w.bw.Flush(); err != nil {
		_ = w.sink.Close()
		return errors.Wrap(err, "flushing recording entry")
	}
	if err := w.sink.Close(); err != nil {
		return errors.Wrap(err, "closing recording entry")
	}
	return nil
}

// WriteMetadata finalizes the recording entry if needed and writes md as the
// container's metadata entry. It must be called at most once.
func (w *Writer) WriteMetadata(md *MetaData) error {
	if err := w.FinishPackets(); err != nil {
		return err
	}
	return md.WriteTo(w.backend)
}
