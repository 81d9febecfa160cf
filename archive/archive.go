// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package archive abstracts the storage layer underneath replay containers.
//
// A backend exposes named entries ("metaData.json", "recording.tmcpr", ...)
// as byte streams. Two implementations are provided: a zip archive, which
// multiplexes all entries into one compressed container, and a plain
// directory, which maps each entry name to a file. Consumers hold the Reader
// and Writer capability interfaces and never care which one they have.
package archive

import (
	"io"

	"github.com/pkg/errors"
)

// ErrEntryNotFound is returned when a named entry is absent from a backend.
var ErrEntryNotFound = errors.New("archive: entry not found")

// ErrEntryOpen is returned by sequential-write backends when a new entry is
// requested while the previous entry's sink has not been closed.
var ErrEntryOpen = errors.New("archive: previous entry is still open")

// Reader provides read access to named entries.
type Reader interface {
	// OpenEntry opens the named entry for reading. It fails with
	// ErrEntryNotFound if no such entry exists.
	OpenEntry(name string) (io.ReadCloser, error)

	// Close releases the backend.
	Close() error
}

// Writer provides write access to named entries.
//
// Backends may be sequential-write-only: the sink returned by CreateEntry
// must be closed before the next entry is created. Sequential backends fail
// with ErrEntryOpen when this ordering is violated.
type Writer interface {
	// CreateEntry creates (or truncates) the named entry and returns a sink
	// for its contents.
	CreateEntry(name string) (io.WriteCloser, error)

	// Close finalizes the backend. Entries written to an archive backend are
	// not readable by other tools until Close returns.
	Close() error
}
