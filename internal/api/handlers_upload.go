// handlers_upload.go - File upload operation handlers
package api

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/storage"
)

// maxFilesPerUpload bounds one multipart request.
const maxFilesPerUpload = 500

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	store storage.Store
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(store storage.Store) UploadHandler {
	return &UploadHandlerImpl{store: store}
}

// HandleUploadFiles accepts one or more log files or zip archives as
// multipart/form-data under the "files" (or "file") field.
func (h *UploadHandlerImpl) HandleUploadFiles(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}

	headers := append(form.File["files"], form.File["file"]...)
	if len(headers) == 0 {
		return NewValidationError("files")
	}
	if len(headers) > maxFilesPerUpload {
		return NewBadRequestError("too many files in one upload", nil)
	}

	saved := make([]*models.FileInfo, 0, len(headers))
	for _, fh := range headers {
		if err := validateUploadName(fh.Filename); err != nil {
			return err
		}

		src, err := fh.Open()
		if err != nil {
			return NewInternalError("failed to open uploaded file", err)
		}
		info, err := h.store.Save(fh.Filename, src)
		src.Close()
		if err != nil {
			return NewInternalError("failed to save file", err)
		}
		saved = append(saved, info)
	}

	log.Info().Int("files", len(saved)).Msg("files uploaded")
	return c.JSON(http.StatusCreated, saved)
}

// HandleUploadFile accepts a file as base64 JSON and saves it to storage
func (h *UploadHandlerImpl) HandleUploadFile(c echo.Context) error {
	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	// Decode base64 content
	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	info, err := h.store.Save(req.Name, bytes.NewReader(decoded))
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentFiles returns the most recently uploaded files
func (h *UploadHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	files, err := h.store.List(200)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	if kind := models.FileKind(c.QueryParam("kind")); kind != "" {
		files = filterByKind(files, kind)
	}

	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *UploadHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes an uploaded file
func (h *UploadHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// Request/Response types

type uploadFileRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return validateUploadName(r.Name)
}

// Helper functions

// validateUploadName accepts .txt logs and .zip archives only.
func validateUploadName(name string) error {
	switch strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/"))) {
	case ".txt", ".zip":
		return nil
	default:
		return NewBadRequestError("unsupported file type: "+name, nil)
	}
}

func filterByKind(files []*models.FileInfo, kind models.FileKind) []*models.FileInfo {
	out := make([]*models.FileInfo, 0, len(files))
	for _, f := range files {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
