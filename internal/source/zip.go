package source

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/section-speed/backend/internal/parser"
)

// ZipSource reads log files stored as members of a zip archive. Both sides
// can share one archive; the prefix filter separates them.
type ZipSource struct {
	label string
	open  func() (*zip.Reader, io.Closer, error)
}

// NewZipFileSource creates a source over a zip archive on disk.
func NewZipFileSource(path string) *ZipSource {
	return &ZipSource{
		label: "zip:" + path,
		open: func() (*zip.Reader, io.Closer, error) {
			rc, err := zip.OpenReader(path)
			if err != nil {
				return nil, nil, err
			}
			return &rc.Reader, rc, nil
		},
	}
}

// NewZipBytesSource creates a source over an in-memory zip archive.
func NewZipBytesSource(name string, data []byte) *ZipSource {
	return &ZipSource{
		label: "zip:" + name,
		open: func() (*zip.Reader, io.Closer, error) {
			zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return nil, nil, err
			}
			return zr, io.NopCloser(nil), nil
		},
	}
}

func (s *ZipSource) Name() string {
	return s.label
}

// Items reads every matching member into memory so the archive can be closed
// before extraction starts.
func (s *ZipSource) Items(ctx context.Context, prefix string) ([]Item, error) {
	zr, closer, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.label, err)
	}
	defer closer.Close()

	items := make([]Item, 0, len(zr.File))
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name
		if f.NonUTF8 {
			name = DecodeName(name)
		}
		if !parser.MatchesSource(name, prefix) {
			continue
		}

		data, err := readMember(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s in %s: %w", name, s.label, err)
		}
		items = append(items, bytesItem(parser.BaseName(name), data))
	}
	sortItems(items)
	return items, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
