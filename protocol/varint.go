// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protocol

import (
	"io"

	"github.com/pkg/errors"
)

const (
	// maxVarIntBytes is the largest number of bytes a VarInt may occupy.
	maxVarIntBytes = 5
	// maxVarLongBytes is the largest number of bytes a VarLong may occupy.
	maxVarLongBytes = 10
)

// ErrMalformedVarint is returned when a varint's continuation-bit run
// exceeds its byte budget (5 bytes for VarInt, 10 for VarLong).
var ErrMalformedVarint = errors.New("protocol: malformed varint")

// ErrTruncatedInput is returned when a stream ends in the middle of a
// structure that has a known remaining length.
var ErrTruncatedInput = errors.New("protocol: truncated input")

// ReadVarInt decodes a 32-bit signed integer from r.
//
// Each byte contributes its low 7 bits, least-significant group first; the
// high bit is a continuation flag. No zigzag transform is applied, so
// negative values always occupy the full 5 bytes.
//
// A stream that ends before the terminating byte fails with
// ErrTruncatedInput, even if no bytes were consumed.
func ReadVarInt(r io.ByteReader) (int32, error) {
	var v uint32
	for i := 0; i < maxVarIntBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = ErrTruncatedInput
			}
			return 0, err
		}

		v |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return int32(v), nil
		}
	}
	return 0, ErrMalformedVarint
}

// ReadVarLong decodes a 64-bit signed integer from r.
//
// ReadVarLong uses the same encoding as ReadVarInt with a 10-byte budget.
func ReadVarLong(r io.ByteReader) (int64, error) {
	var v uint64
	for i := 0; i < maxVarLongBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = ErrTruncatedInput
			}
			return 0, err
		}

		v |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return int64(v), nil
		}
	}
	return 0, ErrMalformedVarint
}

// WriteVarInt encodes v to w, returning the number of bytes written.
func WriteVarInt(w io.ByteWriter, v int32) (int, error) {
	u := uint32(v)
	n := 0
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		if err := w.WriteByte(b); err != nil {
			return n, err
		}
		n++
		if u == 0 {
			return n, nil
		}
	}
}

// WriteVarLong encodes v to w, returning the number of bytes written.
func WriteVarLong(w io.ByteWriter, v int64) (int, error) {
	u := uint64(v)
	n := 0
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		if err := w.WriteByte(b); err != nil {
			return n, err
		}
		n++
		if u == 0 {
			return n, nil
		}
	}
}

// VarIntLen returns the number of bytes WriteVarInt will emit for v.
func VarIntLen(v int32) int {
	u := uint32(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

// VarLongLen returns the number of bytes WriteVarLong will emit for v.
func VarLongLen(v int64) int {
	u := uint64(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}
