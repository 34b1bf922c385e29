package models

import (
	"path"
	"strings"
	"time"
)

// FileKind distinguishes plain log uploads from archives.
type FileKind string

const (
	FileKindLog     FileKind = "log"
	FileKindArchive FileKind = "archive"
)

// FileInfo represents metadata about an uploaded file.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       FileKind  `json:"kind"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"` // "uploaded", "analyzed", "error"
}

// KindForName infers the file kind from its extension.
func KindForName(name string) FileKind {
	if strings.EqualFold(path.Ext(name), ".zip") {
		return FileKindArchive
	}
	return FileKindLog
}
