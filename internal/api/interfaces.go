// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/resultstore"
)

// UploadHandler handles file upload operations
type UploadHandler interface {
	HandleUploadFiles(c echo.Context) error
	HandleUploadFile(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// AnalysisHandler handles analysis session operations
type AnalysisHandler interface {
	HandleStartAnalysis(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleStatus(c echo.Context) error
	HandleProgressStream(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
	HandleRerun(c echo.Context) error
	HandleReset(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleRecords(c echo.Context) error
	HandleRecordsMsgpack(c echo.Context) error
	HandleSummary(c echo.Context) error
	HandleSpeedBands(c echo.Context) error
	HandleDiagnostics(c echo.Context) error
	HandleExport(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartAnalysis(input models.SessionInput, cfg models.AnalysisConfig) (*models.AnalysisSession, error)
	Rerun(id string, cfg *models.AnalysisConfig) (*models.AnalysisSession, error)
	Reset(id string) (*models.AnalysisSession, error)
	DeleteSession(id string) error
	GetSession(id string) (*models.AnalysisSession, bool)
	ListSessions() []*models.AnalysisSession
	TouchSession(id string) bool
	GetResult(id string) (*models.ResultSet, error)
	QueryRecords(ctx context.Context, id string, params resultstore.QueryParams, page, pageSize int) ([]models.MatchedRecord, int, error)
	SpeedBands(ctx context.Context, id string, widthKmh float64) ([]resultstore.SpeedBand, error)
}
