// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package archive

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Dir is a backend that maps each entry name to a file under a root
// directory.
//
// Dir supports both capabilities and, unlike ZipWriter, places no ordering
// constraint on writes.
type Dir struct {
	path string
}

var _ interface {
	Reader
	Writer
} = (*Dir)(nil)

// NewDir returns a directory backend rooted at path.
//
// The directory is not required to exist until an entry is opened; use
// CreatePath to create it eagerly.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the backend's root directory.
func (d *Dir) Path() string { return d.path }

// OpenEntry implements Reader.
func (d *Dir) OpenEntry(name string) (io.ReadCloser, error) {
	fd, err := os.Open(filepath.Join(d.path, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrEntryNotFound, "entry %q", name)
		}
		return nil, errors.Wrapf(err, "opening entry %q", name)
	}
	return fd, nil
}

// CreateEntry implements Writer. The entry's file is created or truncated.
func (d *Dir) CreateEntry(name string) (io.WriteCloser, error) {
	fd, err := os.Create(filepath.Join(d.path, name))
	if err != nil {
		return nil, errors.Wrapf(err, "creating entry %q", name)
	}
	return fd, nil
}

// Close implements Reader and Writer. It is a no-op; entry files are
// finalized individually as their sinks close.
func (d *Dir) Close() error { return nil }

// archiveExtensions are the path suffixes that select the zip backend.
var archiveExtensions = []string{".mcpr", ".zip"}

// hasArchiveExt returns true if path names a zip-style container.
func hasArchiveExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range archiveExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// OpenPath opens a read backend for path.
//
// An existing directory selects the directory backend; anything else is
// opened as a zip archive.
func OpenPath(path string) (Reader, error) {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return NewDir(path), nil
	}
	return OpenZip(path)
}

// CreatePath creates a write backend for path.
//
// A path with a known archive extension selects the zip backend with the
// given deflate level; any other path is created as a directory.
func CreatePath(path string, level int) (Writer, error) {
	if hasArchiveExt(path) {
		return CreateZip(path, level)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating directory %q", path)
	}
	return NewDir(path), nil
}
