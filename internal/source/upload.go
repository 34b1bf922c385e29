package source

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/parser"
)

// FileStore is the part of the storage layer an upload source needs.
type FileStore interface {
	Get(id string) (*models.FileInfo, error)
	Open(id string) (io.ReadCloser, error)
}

// UploadSource reads previously uploaded files by ID. Uploads whose display
// name does not carry the side's prefix are ignored, so one ID list can feed
// both sides.
type UploadSource struct {
	store   FileStore
	fileIDs []string
}

// NewUploadSource creates a source over uploaded files.
func NewUploadSource(store FileStore, fileIDs []string) *UploadSource {
	return &UploadSource{store: store, fileIDs: fileIDs}
}

func (s *UploadSource) Name() string {
	return fmt.Sprintf("uploads(%d files)", len(s.fileIDs))
}

func (s *UploadSource) Items(ctx context.Context, prefix string) ([]Item, error) {
	items := make([]Item, 0, len(s.fileIDs))
	for _, id := range s.fileIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := s.store.Get(id)
		if err != nil {
			return nil, fmt.Errorf("resolving upload %s: %w", id, err)
		}
		if !parser.MatchesSource(info.Name, prefix) {
			continue
		}
		fileID := id
		items = append(items, Item{
			Name: parser.BaseName(info.Name),
			Open: func() (io.ReadCloser, error) { return s.store.Open(fileID) },
		})
	}
	sortItems(items)
	return items, nil
}

// NewZipUploadSource creates a source over an uploaded zip archive.
func NewZipUploadSource(store FileStore, fileID string) *ZipSource {
	return &ZipSource{
		label: "upload:" + fileID,
		open: func() (*zip.Reader, io.Closer, error) {
			rc, err := store.Open(fileID)
			if err != nil {
				return nil, nil, err
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, nil, err
			}
			zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return nil, nil, err
			}
			return zr, io.NopCloser(nil), nil
		},
	}
}
