// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"io"
	"unicode/utf8"

	"github.com/danjacques/gomcreplay/support/dataio"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ReadInt reads a big-endian 32-bit signed integer from r.
func ReadInt(r io.Reader) (int32, error) {
	var d [4]byte
	if _, err := dataio.ReadFull(r, d[:]); err != nil {
		return 0, truncated(err)
	}
	return int32(binary.BigEndian.Uint32(d[:])), nil
}

// ReadLong reads a big-endian 64-bit signed integer from r.
func ReadLong(r io.Reader) (int64, error) {
	var d [8]byte
	if _, err := dataio.ReadFull(r, d[:]); err != nil {
		return 0, truncated(err)
	}
	return int64(binary.BigEndian.Uint64(d[:])), nil
}

// ReadString reads a VarInt-length-prefixed UTF-8 string from r.
//
// r need not support byte-level reads; it is adapted via dataio.MakeReader
// for the length varint.
func ReadString(r io.Reader) (string, error) {
	dr := dataio.MakeReader(r)

	length, err := ReadVarInt(dr)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", errors.Errorf("protocol: negative string length %d", length)
	}

	buf := make([]byte, length)
	if _, err := dataio.ReadFull(dr, buf); err != nil {
		return "", truncated(err)
	}
	if !utf8.Valid(buf) {
		return "", errors.New("protocol: invalid UTF-8 string")
	}
	return string(buf), nil
}

// ReadUUID reads a raw 16-byte UUID from r.
func ReadUUID(r io.Reader) (uuid.UUID, error) {
	var d [16]byte
	if _, err := dataio.ReadFull(r, d[:]); err != nil {
		return uuid.UUID{}, truncated(err)
	}
	return uuid.UUID(d), nil
}

// truncated maps any end-of-stream condition from a fixed-size read to
// ErrTruncatedInput. Other errors pass through unchanged.
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncatedInput
	}
	return err
}
