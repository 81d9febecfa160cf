// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"encoding/binary"
	"io"

	"github.com/danjacques/gomcreplay/protocol"
	"github.com/danjacques/gomcreplay/support/byteslicereader"
	"github.com/danjacques/gomcreplay/support/dataio"

	"github.com/pkg/errors"
)

// ErrTruncatedRecord is returned when a recording stream ends mid-record.
//
// End-of-stream on the first byte of a record header is the normal
// exhaustion signal and is reported as io.EOF instead.
var ErrTruncatedRecord = errors.New("replay: truncated packet record")

// packetHeaderSize is the fixed record header: big-endian u32 time followed
// by big-endian u32 payload length.
const packetHeaderSize = 8

// Packet is one timestamped, identified, opaque-payload record in a
// recording stream.
type Packet struct {
	// Time is the packet's millisecond offset from the start of its source
	// stream. It is not guaranteed unique or strictly increasing; it is
	// rewritten only when the Merger re-bases a stream onto a new timeline.
	Time uint32

	// ID is the protocol packet identifier. The wire type is a signed 32-bit
	// VarInt, though real identifiers fit in one byte.
	ID int32

	// Data is the payload following the identifier. It is owned exclusively
	// by the packet.
	Data []byte
}

// EncodedLen returns the number of bytes WritePacket will emit for p,
// including the record header.
func (p *Packet) EncodedLen() int {
	return packetHeaderSize + protocol.VarIntLen(p.ID) + len(p.Data)
}

// ReadPacket reads the next packet record from r.
//
// If r is positioned at a clean end of stream (no header bytes remain),
// ReadPacket returns io.EOF. A stream that ends mid-header or mid-payload
// fails with ErrTruncatedRecord; a payload whose identifier varint is
// malformed fails with protocol.ErrMalformedVarint.
func ReadPacket(r io.Reader) (*Packet, error) {
	var header [packetHeaderSize]byte
	switch amt, err := dataio.ReadFull(r, header[:]); {
	case err == nil:
	case err == io.EOF && amt == 0:
		// Clean end of the record stream.
		return nil, io.EOF
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return nil, errors.Wrap(ErrTruncatedRecord, "reading header")
	default:
		return nil, errors.Wrap(err, "reading header")
	}

	time := binary.BigEndian.Uint32(header[0:4])
	length := binary.BigEndian.Uint32(header[4:8])

	payload := make([]byte, length)
	switch _, err := dataio.ReadFull(r, payload); {
	case err == nil:
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return nil, errors.Wrapf(ErrTruncatedRecord, "reading %d payload bytes", length)
	default:
		return nil, errors.Wrap(err, "reading payload")
	}

	// The identifier varint leads the payload; the remainder is packet data.
	// The payload buffer is freshly allocated, so handing out a slice of it
	// keeps ownership with the packet.
	bsr := byteslicereader.R{Buffer: payload}
	id, err := protocol.ReadVarInt(&bsr)
	if err != nil {
		return nil, errors.Wrap(err, "decoding packet id")
	}
	data, _ := bsr.Next(bsr.Remaining())

	return &Packet{
		Time: time,
		ID:   id,
		Data: data,
	}, nil
}

// WritePacket writes p to w as one record.
//
// The record's length field is always recomputed from the identifier and
// payload, never trusted from a stored value, so a read/write cycle is
// byte-exact.
func WritePacket(w io.Writer, p *Packet) error {
	dw := dataio.MakeWriter(w)

	var header [packetHeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], p.Time)
	binary.BigEndian.PutUint32(header[4:8], uint32(protocol.VarIntLen(p.ID)+len(p.Data)))
	if _, err := dw.Write(header[:]); err != nil {
		return errors.Wrap(err, "writing header")
	}

	if _, err := protocol.WriteVarInt(dw, p.ID); err != nil {
		return errors.Wrap(err, "writing packet id")
	}
	if _, err := dw.Write(p.Data); err != nil {
		return errors.Wrap(err, "writing payload")
	}
	return nil
}
