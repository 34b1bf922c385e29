package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/section-speed/backend/internal/parser"
)

// DirSource reads log files from a local directory (non-recursive).
type DirSource struct {
	Dir string
}

// NewDirSource creates a directory-backed source.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) Name() string {
	return "dir:" + s.Dir
}

func (s *DirSource) Items(ctx context.Context, prefix string) ([]Item, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", s.Dir, err)
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !parser.MatchesSource(entry.Name(), prefix) {
			continue
		}
		path := filepath.Join(s.Dir, entry.Name())
		items = append(items, Item{
			Name: entry.Name(),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	sortItems(items)
	return items, ctx.Err()
}
