// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package flashback reads the chunk-record framing of the "action log"
// replay format.
//
// An action-log container is an archive whose metadata document carries an
// ordered table of chunk entries. Each chunk entry is a self-describing
// binary file: a fixed magic number, a registry of action names, a snapshot
// blob, and then a sequence of variable-length action records that reuse the
// same varint codec as the packet container.
//
// Only the framing is implemented here; interpreting action payloads and
// chunked playback are out of scope.
package flashback

import (
	"bufio"
	"encoding/json"
	"io"
	"sort"

	"github.com/danjacques/gomcreplay/archive"
	"github.com/danjacques/gomcreplay/protocol"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ChunkMagic is the fixed leading i32 of every chunk entry.
const ChunkMagic int32 = -679417724

// MetadataEntryName is the entry holding the action-log metadata document.
const MetadataEntryName = "metadata.json"

// ErrChunkFormat is returned when a chunk entry violates its framing.
var ErrChunkFormat = errors.New("flashback: malformed chunk")

// ActionKind classifies an action record.
type ActionKind int

// Known action kinds. Chunk registries name actions by string; names not
// recognized here map to ActionUnknown rather than failing the scan.
const (
	ActionUnknown ActionKind = iota
	ActionNextTick
	ActionGamePacket
	ActionConfigurationPacket
	ActionCreateLocalPlayer
	ActionMoveEntities
	ActionLevelChunkCached
	ActionAccuratePlayerPosition
)

var actionKindNames = map[string]ActionKind{
	"flashback:action/next_tick":                ActionNextTick,
	"flashback:action/game_packet":              ActionGamePacket,
	"flashback:action/configuration_packet":     ActionConfigurationPacket,
	"flashback:action/create_local_player":      ActionCreateLocalPlayer,
	"flashback:action/move_entities":            ActionMoveEntities,
	"flashback:action/level_chunk_cached":       ActionLevelChunkCached,
	"flashback:action/accurate_player_position": ActionAccuratePlayerPosition,
}

// ActionKindFromName resolves a registry name, returning ActionUnknown for
// names this package does not recognize.
func ActionKindFromName(name string) ActionKind {
	if k, ok := actionKindNames[name]; ok {
		return k
	}
	return ActionUnknown
}

// String returns the action's registry name, or "unknown".
func (k ActionKind) String() string {
	for name, kind := range actionKindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Action is one record in a chunk's action stream.
type Action struct {
	Kind ActionKind
	Data []byte
}

// ChunkMeta describes one chunk in the metadata's chunk table.
type ChunkMeta struct {
	// Duration is the chunk's length in ticks.
	Duration uint64 `json:"duration"`
}

// MetaData is the action-log metadata document.
type MetaData struct {
	UUID            uuid.UUID       `json:"uuid"`
	Name            string          `json:"name"`
	VersionString   string          `json:"version_string"`
	WorldName       *string         `json:"world_name"`
	DataVersion     uint32          `json:"data_version"`
	ProtocolVersion uint32          `json:"protocol_version"`
	TotalTicks      uint64          `json:"total_ticks"`
	Markers         json.RawMessage `json:"markers"`

	// Chunks maps chunk entry names to their descriptions. Chunks play in
	// lexical entry-name order; see ChunkNames.
	Chunks map[string]ChunkMeta `json:"chunks"`
}

// ChunkNames returns the chunk entry names in playback order.
func (md *MetaData) ChunkNames() []string {
	names := make([]string, 0, len(md.Chunks))
	for name := range md.Chunks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reader reads an action-log container from a backend.
type Reader struct {
	backend archive.Reader
}

// NewReader returns a Reader over backend.
func NewReader(backend archive.Reader) *Reader {
	return &Reader{backend: backend}
}

// Metadata loads the container's metadata document.
func (r *Reader) Metadata() (*MetaData, error) {
	src, err := r.backend.OpenEntry(MetadataEntryName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = src.Close()
	}()

	var md MetaData
	if err := json.NewDecoder(src).Decode(&md); err != nil {
		return nil, errors.Wrap(err, "decoding metadata")
	}
	return &md, nil
}

// OpenChunk opens the named chunk entry and parses its header, leaving the
// returned ChunkReader positioned at the first action record.
func (r *Reader) OpenChunk(name string) (*ChunkReader, error) {
	src, err := r.backend.OpenEntry(name)
	if err != nil {
		return nil, err
	}

	cr, err := ParseChunk(src)
	if err != nil {
		_ = src.Close()
		return nil, errors.Wrapf(err, "chunk %q", name)
	}
	cr.closer = src
	return cr, nil
}

// ChunkReader is a lazy, single-pass reader over one chunk's action
// records.
type ChunkReader struct {
	br      *bufio.Reader
	actions []ActionKind
	closer  io.Closer

	ticks uint64
}

// ParseChunk consumes a chunk's header from src: the magic number, the
// action-name registry, and the (skipped) snapshot blob.
func ParseChunk(src io.Reader) (*ChunkReader, error) {
	br := bufio.NewReader(src)

	magic, err := protocol.ReadInt(br)
	if err != nil {
		return nil, errors.Wrap(err, "reading magic")
	}
	if magic != ChunkMagic {
		return nil, errors.Wrapf(ErrChunkFormat, "bad magic 0x%08x", uint32(magic))
	}

	count, err := protocol.ReadVarInt(br)
	if err != nil {
		return nil, errors.Wrap(err, "reading action count")
	}
	if count < 0 {
		return nil, errors.Wrapf(ErrChunkFormat, "negative action count %d", count)
	}

	actions := make([]ActionKind, count)
	for i := range actions {
		name, err := protocol.ReadString(br)
		if err != nil {
			return nil, errors.Wrapf(err, "reading action name #%d", i)
		}
		actions[i] = ActionKindFromName(name)
	}

	// The initial world snapshot is opaque to the framing layer.
	snapshotLen, err := protocol.ReadInt(br)
	if err != nil {
		return nil, errors.Wrap(err, "reading snapshot length")
	}
	if snapshotLen < 0 {
		return nil, errors.Wrapf(ErrChunkFormat, "negative snapshot length %d", snapshotLen)
	}
	if _, err := io.CopyN(io.Discard, br, int64(snapshotLen)); err != nil {
		return nil, errors.Wrap(protocol.ErrTruncatedInput, "skipping snapshot")
	}

	return &ChunkReader{br: br, actions: actions}, nil
}

// Next returns the next action record.
//
// Next returns io.EOF at the natural end of the chunk; a chunk that ends
// mid-record fails with protocol.ErrTruncatedInput. NextTick actions advance
// the reader's tick counter as a side effect.
func (c *ChunkReader) Next() (*Action, error) {
	// A clean end is only an end-of-stream on the record's first byte.
	if _, err := c.br.Peek(1); err == io.EOF {
		return nil, io.EOF
	}

	id, err := protocol.ReadVarInt(c.br)
	if err != nil {
		return nil, errors.Wrap(err, "reading action id")
	}
	if id < 0 || int(id) >= len(c.actions) {
		return nil, errors.Wrapf(ErrChunkFormat, "action id %d outside registry of %d", id, len(c.actions))
	}

	length, err := protocol.ReadInt(c.br)
	if err != nil {
		return nil, errors.Wrap(err, "reading record length")
	}
	if length < 0 {
		return nil, errors.Wrapf(ErrChunkFormat, "negative record length %d", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(c.br, data); err != nil {
		return nil, errors.Wrapf(protocol.ErrTruncatedInput, "reading %d record bytes", length)
	}

	kind := c.actions[id]
	if kind == ActionNextTick {
		c.ticks++
	}
	return &Action{Kind: kind, Data: data}, nil
}

// Ticks returns the number of NextTick actions observed so far.
func (c *ChunkReader) Ticks() uint64 { return c.ticks }

// Close releases the chunk's underlying entry stream, if any.
func (c *ChunkReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
