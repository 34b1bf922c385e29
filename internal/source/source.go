package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/section-speed/backend/internal/parser"
)

// Item is one candidate log file. Open is called lazily by the extraction workers.
type Item struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// ReadAll opens the item and reads it fully.
func (it Item) ReadAll() ([]byte, error) {
	rc, err := it.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", it.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", it.Name, err)
	}
	return data, nil
}

// Source enumerates the log files of one checkpoint side.
type Source interface {
	// Name describes the source for logs and diagnostics.
	Name() string
	// Items returns the files whose base name starts with prefix and ends
	// with ".txt", sorted by base name.
	Items(ctx context.Context, prefix string) ([]Item, error)
}

// NamedBytes is an in-memory file, e.g. a multipart upload.
type NamedBytes struct {
	Name string
	Data []byte
}

// MemorySource serves already-loaded files.
type MemorySource struct {
	Files []NamedBytes
}

// NewMemorySource creates a source over in-memory files.
func NewMemorySource(files ...NamedBytes) *MemorySource {
	return &MemorySource{Files: files}
}

func (s *MemorySource) Name() string {
	return fmt.Sprintf("memory(%d files)", len(s.Files))
}

func (s *MemorySource) Items(ctx context.Context, prefix string) ([]Item, error) {
	items := make([]Item, 0, len(s.Files))
	for _, f := range s.Files {
		if !parser.MatchesSource(f.Name, prefix) {
			continue
		}
		items = append(items, bytesItem(parser.BaseName(f.Name), f.Data))
	}
	sortItems(items)
	return items, ctx.Err()
}

func bytesItem(name string, data []byte) Item {
	return Item{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// sortItems orders items by name; the YYYYMMDDHH stamp makes this chronological
// for files sharing a prefix.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
}
