// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

import (
	"encoding/json"
	"sort"

	"github.com/danjacques/gomcreplay/archive"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Container entry names. These are wire-compatibility requirements; existing
// tools look entries up by exactly these names.
const (
	// MetadataEntryName is the entry holding the session metadata document.
	MetadataEntryName = "metaData.json"
	// RecordingEntryName is the entry holding the packet stream.
	RecordingEntryName = "recording.tmcpr"
)

// Fixed format tags stamped into metadata written by this package.
const (
	// FileFormat is the container format tag.
	FileFormat = "MCPR"
	// FileFormatVersion is the container format version.
	FileFormatVersion = 14
)

// ErrMetadataFormat is returned when a metadata document fails to parse.
var ErrMetadataFormat = errors.New("replay: malformed metadata document")

// UUIDSet is a set of unique participant identifiers.
//
// It marshals as a sorted JSON array of canonical UUID strings; duplicates
// collapse on insertion.
type UUIDSet map[uuid.UUID]struct{}

// Add inserts id into the set.
func (s UUIDSet) Add(id uuid.UUID) { s[id] = struct{}{} }

// Contains returns true if id is in the set.
func (s UUIDSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// Union inserts every member of other into s. No member is ever removed.
func (s UUIDSet) Union(other UUIDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Clone returns an independent copy of s.
func (s UUIDSet) Clone() UUIDSet {
	c := make(UUIDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// MarshalJSON implements json.Marshaler. Members are sorted so the document
// is deterministic.
func (s UUIDSet) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return json.Marshal(ids)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *UUIDSet) UnmarshalJSON(d []byte) error {
	var ids []uuid.UUID
	if err := json.Unmarshal(d, &ids); err != nil {
		return err
	}

	set := make(UUIDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	*s = set
	return nil
}

// MetaData is the session metadata document.
//
// Field names and the flat document shape are wire-compatibility
// requirements for interoperating with existing archives; do not rename.
type MetaData struct {
	Singleplayer     bool   `json:"singleplayer"`
	ServerName       string `json:"serverName"`
	CustomServerName string `json:"customServerName"`

	// Duration is the total elapsed milliseconds across all constituent
	// streams.
	Duration uint64 `json:"duration"`
	// Date is the recording start time, in Unix milliseconds.
	Date uint64 `json:"date"`

	MCVersion         string `json:"mcversion"`
	FileFormat        string `json:"fileFormat"`
	FileFormatVersion uint32 `json:"fileFormatVersion"`
	Protocol          uint32 `json:"protocol"`
	Generator         string `json:"generator"`

	// SelfID is the recording player's entity id, or -1 if unknown.
	SelfID int32 `json:"selfId"`

	// Players is the set of unique participant identifiers.
	Players UUIDSet `json:"players"`
}

// DefaultMetaData returns a metadata document with the format's zero-state
// defaults.
func DefaultMetaData() *MetaData {
	return &MetaData{
		SelfID:  -1,
		Players: UUIDSet{},
	}
}

// ReadMetadata loads the metadata document from a backend.
//
// A missing entry fails with archive.ErrEntryNotFound; an unparseable
// document fails with ErrMetadataFormat.
func ReadMetadata(backend archive.Reader) (*MetaData, error) {
	src, err := backend.OpenEntry(MetadataEntryName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = src.Close()
	}()

	md := DefaultMetaData()
	if err := json.NewDecoder(src).Decode(md); err != nil {
		return nil, errors.Wrap(ErrMetadataFormat, err.Error())
	}
	return md, nil
}

// WriteTo writes md to a backend, creating its metadata entry.
//
// On a sequential-write backend this must happen after the recording entry
// has been fully written and closed.
func (md *MetaData) WriteTo(backend archive.Writer) error {
	sink, err := backend.CreateEntry(MetadataEntryName)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(sink).Encode(md); err != nil {
		_ = sink.Close()
		return errors.Wrap(err, "encoding metadata")
	}
	return sink.Close()
}
