// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package archive

import (
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

// DefaultCompressionLevel is the deflate level applied to zip entries when
// the caller does not choose one.
const DefaultCompressionLevel = flate.BestCompression

// ZipReader is a Reader over a zip archive.
type ZipReader struct {
	zr *zip.Reader

	// closer, if not nil, is closed along with the reader. OpenZip uses it to
	// hold the backing file.
	closer io.Closer
}

var _ Reader = (*ZipReader)(nil)

// OpenZip opens the zip archive at path for entry reads.
func OpenZip(path string) (*ZipReader, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening archive %q", path)
	}

	st, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return nil, errors.Wrapf(err, "stat archive %q", path)
	}

	zr, err := zip.NewReader(fd, st.Size())
	if err != nil {
		_ = fd.Close()
		return nil, errors.Wrapf(err, "reading archive %q", path)
	}

	return &ZipReader{zr: zr, closer: fd}, nil
}

// NewZipReader returns a ZipReader over an arbitrary sized ReaderAt.
func NewZipReader(r io.ReaderAt, size int64) (*ZipReader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "reading archive")
	}
	return &ZipReader{zr: zr}, nil
}

// OpenEntry implements Reader.
func (z *ZipReader) OpenEntry(name string) (io.ReadCloser, error) {
	for _, f := range z.zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, errors.Wrapf(err, "opening entry %q", name)
			}
			return rc, nil
		}
	}
	return nil, errors.Wrapf(ErrEntryNotFound, "entry %q", name)
}

// Close implements Reader.
func (z *ZipReader) Close() error {
	if z.closer == nil {
		return nil
	}
	return z.closer.Close()
}

// ZipWriter is a sequential-write-only Writer that multiplexes entries into
// one zip archive.
//
// The zip format appends entries in order, so each entry's sink must be
// closed before the next entry is created; CreateEntry enforces this with
// ErrEntryOpen. Entry data is deflated at the level chosen at construction.
type ZipWriter struct {
	zw *zip.Writer

	closer    io.Closer
	entryOpen bool
}

var _ Writer = (*ZipWriter)(nil)

// CreateZip creates a zip archive at path whose entries are deflated at the
// given level.
func CreateZip(path string, level int) (*ZipWriter, error) {
	fd, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating archive %q", path)
	}

	zw := NewZipWriter(fd, level)
	zw.closer = fd
	return zw, nil
}

// NewZipWriter returns a ZipWriter writing archive bytes to w.
func NewZipWriter(w io.Writer, level int) *ZipWriter {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	return &ZipWriter{zw: zw}
}

// CreateEntry implements Writer.
func (z *ZipWriter) CreateEntry(name string) (io.WriteCloser, error) {
	if z.entryOpen {
		return nil, errors.Wrapf(ErrEntryOpen, "creating entry %q", name)
	}

	w, err := z.zw.Create(name)
	if err != nil {
		return nil, errors.Wrapf(err, "creating entry %q", name)
	}

	z.entryOpen = true
	return &zipEntrySink{zw: z, w: w}, nil
}

// Close implements Writer. It writes the archive's central directory; the
// archive is unreadable until Close succeeds.
func (z *ZipWriter) Close() (err error) {
	if z.closer != nil {
		defer func() {
			closeErr := z.closer.Close()
			if err == nil {
				err = closeErr
			}
		}()
	}

	if z.entryOpen {
		return errors.Wrap(ErrEntryOpen, "closing archive")
	}
	return z.zw.Close()
}

// zipEntrySink forwards writes to the archive's current entry.
//
// The zip writer finalizes an entry when the next one begins, so Close only
// releases the sequential-write lock.
type zipEntrySink struct {
	zw *ZipWriter
	w  io.Writer
}

func (s *zipEntrySink) Write(d []byte) (int, error) {
	if s.w == nil {
		return 0, errors.New("archive: write to closed entry")
	}
	return s.w.Write(d)
}

func (s *zipEntrySink) Close() error {
	if s.w == nil {
		return nil
	}
	s.w = nil
	s.zw.entryOpen = false
	return s.zw.zw.Flush()
}
