// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package protocol implements the wire-level primitives shared by the replay
// container formats: the 7-bit-group variable-length integer codec, a small
// set of big-endian field readers, and the connection-phase tracker.
//
// Nothing in this package interprets packet bodies. The phase tracker in
// particular is a heuristic driven purely by packet identifiers; it works
// only because the container formats store packets in wire order.
package protocol
