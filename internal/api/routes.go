// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      storage.Store
	SessionMgr SessionManager
	Defaults   models.AnalysisConfig
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Upload   UploadHandler
	Analysis AnalysisHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.SessionMgr),
		Upload:   NewUploadHandler(deps.Store),
		Analysis: NewAnalysisHandler(deps.SessionMgr, deps.Defaults),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)
	e.GET("/api/health", handlers.Health.HandleHealth)

	// File upload routes
	fileGroup := e.Group("/api/files")
	fileGroup.POST("/upload", handlers.Upload.HandleUploadFiles)
	fileGroup.POST("/upload/base64", handlers.Upload.HandleUploadFile)
	fileGroup.GET("/recent", handlers.Upload.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Upload.HandleGetFile)
	fileGroup.DELETE("/:id", handlers.Upload.HandleDeleteFile)

	// Analysis session routes
	analysisGroup := e.Group("/api/analysis")
	analysisGroup.POST("", handlers.Analysis.HandleStartAnalysis)
	analysisGroup.GET("", handlers.Analysis.HandleListSessions)
	analysisGroup.GET("/:sessionId/status", handlers.Analysis.HandleStatus)
	analysisGroup.GET("/:sessionId/progress", handlers.Analysis.HandleProgressStream)
	analysisGroup.POST("/:sessionId/keepalive", handlers.Analysis.HandleKeepAlive)
	analysisGroup.POST("/:sessionId/rerun", handlers.Analysis.HandleRerun)
	analysisGroup.POST("/:sessionId/reset", handlers.Analysis.HandleReset)
	analysisGroup.DELETE("/:sessionId", handlers.Analysis.HandleDeleteSession)
	analysisGroup.GET("/:sessionId/records", handlers.Analysis.HandleRecords)
	analysisGroup.GET("/:sessionId/records/msgpack", handlers.Analysis.HandleRecordsMsgpack)
	analysisGroup.GET("/:sessionId/summary", handlers.Analysis.HandleSummary)
	analysisGroup.GET("/:sessionId/speed-bands", handlers.Analysis.HandleSpeedBands)
	analysisGroup.GET("/:sessionId/diagnostics", handlers.Analysis.HandleDiagnostics)
	analysisGroup.GET("/:sessionId/export", handlers.Analysis.HandleExport)
}

// MiddlewareOptions selects the optional middleware.
type MiddlewareOptions struct {
	EnableCORS     bool
	AllowOrigins   []string
	RequestLogging bool
	BodyLimit      string
	RequestTimeout time.Duration
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !opts.RequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasSuffix(path, "/progress") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if opts.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: opts.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.HasSuffix(path, "/progress") ||
					strings.Contains(path, "/upload") ||
					strings.HasSuffix(path, "/export")
			},
			ErrorMessage: "Request timeout - query took too long",
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		origins := opts.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

// SplitOrigins parses a comma separated origin list.
func SplitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
