// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package dataio exposes byte-granular reader and writer capabilities.
//
// Wire codecs in this repository frequently need to consume or emit single
// bytes (e.g., varint groups) interleaved with bulk reads and writes. Rather
// than asserting stream capabilities at every call site, codecs accept the
// composite interfaces defined here and use MakeReader / MakeWriter to adapt
// streams that lack byte-level methods.
package dataio

import (
	"io"
)

// Reader is a Reader that can read both individual bytes and sequences of
// bytes.
type Reader interface {
	io.Reader
	io.ByteReader
}

// MakeReader returns a Reader for r.
//
// If r natively supports byte-level reads, it is returned directly;
// otherwise, it is wrapped in an adapter that simulates them.
func MakeReader(r io.Reader) Reader {
	if dr, ok := r.(Reader); ok {
		return dr
	}
	return &simulatedReader{r}
}

type simulatedReader struct {
	io.Reader
}

func (r *simulatedReader) ReadByte() (byte, error) {
	var d [1]byte
	amt, err := r.Read(d[:])
	if amt == 1 {
		// A reader may deliver its final byte alongside io.EOF; the byte is
		// still valid, and the next read will report the EOF on its own.
		return d[0], nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return 0, err
}

// Writer is a Writer that can write both individual bytes and sequences of
// bytes.
type Writer interface {
	io.Writer
	io.ByteWriter
}

// MakeWriter returns a Writer for w.
//
// If w natively supports byte-level writes, it is returned directly;
// otherwise, it is wrapped in an adapter that simulates them.
func MakeWriter(w io.Writer) Writer {
	if dw, ok := w.(Writer); ok {
		return dw
	}
	return &simulatedWriter{w}
}

type simulatedWriter struct {
	io.Writer
}

func (w *simulatedWriter) WriteByte(c byte) error {
	d := [1]byte{c}
	switch amt, err := w.Write(d[:]); {
	case err != nil:
		return err
	case amt != 1:
		panic("invalid Writer implementation")
	default:
		return nil
	}
}

// ReadFull reads from r until buf is full, or until an error is encountered.
//
// This accommodates the fact that io.Reader is allowed to return less than
// the full buffer size without erroring. If the stream ends with buf
// partially filled, ReadFull returns io.EOF and the number of bytes that
// were read; callers use the count to distinguish a clean end-of-stream from
// a mid-record truncation.
func ReadFull(r io.Reader, buf []byte) (int, error) {
	total := 0
	for remaining := buf; len(remaining) > 0; {
		amt, err := r.Read(remaining)
		remaining = remaining[amt:]
		total += amt
		if err != nil {
			if err == io.EOF && len(remaining) == 0 {
				// Final read returned EOF alongside the last of our data.
				return total, nil
			}
			return total, err
		}
	}
	return total, nil
}
