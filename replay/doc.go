// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package replay reads, filters, merges, and rewrites game-session replay
// containers.
//
// A container is a storage backend (see the archive package) holding two
// entries:
//
//   - "metaData.json", a flat JSON document describing the session, and
//   - "recording.tmcpr", a raw sequence of time-stamped protocol packets.
//
// Each recording record is framed as a big-endian u32 millisecond offset, a
// big-endian u32 length, a VarInt packet identifier, and the packet payload.
// Records are concatenated with no separators and terminated by the natural
// end of the entry.
//
// Scanning a recording tags every packet with the connection phase it was
// captured in, inferred from identifiers alone (the container begins
// post-handshake, in the Login phase). The Merger stitches several
// recordings into one timeline: packet times are re-based by an accumulating
// offset derived from each input's declared duration, participant sets are
// unioned, and packets from non-first inputs that predate the Play phase
// are suppressed so that embedded re-login sequences are not replayed into
// an established session.
//
// The engine is synchronous and single-threaded: packet order is
// semantically significant, so inputs are processed strictly in caller
// order and never concurrently. Independent merges may run in parallel as
// long as they own disjoint backends.
package replay
