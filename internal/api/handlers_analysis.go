// handlers_analysis.go - Analysis session operation handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/report"
	"github.com/section-speed/backend/internal/resultstore"
	"github.com/vmihailenco/msgpack/v5"
)

// AnalysisHandlerImpl implements the AnalysisHandler interface
type AnalysisHandlerImpl struct {
	sessionMgr SessionManager
	defaults   models.AnalysisConfig
}

// NewAnalysisHandler creates a new analysis handler. defaults is the base
// every request's config overrides are applied to.
func NewAnalysisHandler(sessionMgr SessionManager, defaults models.AnalysisConfig) AnalysisHandler {
	return &AnalysisHandlerImpl{
		sessionMgr: sessionMgr,
		defaults:   defaults,
	}
}

// HandleStartAnalysis creates a session over uploaded files and starts it
func (h *AnalysisHandlerImpl) HandleStartAnalysis(c echo.Context) error {
	var req startAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	cfg, err := applyOverrides(h.defaults, req.Config)
	if err != nil {
		return err
	}

	input := models.SessionInput{
		StartFileIDs:  req.StartFileIDs,
		EndFileIDs:    req.EndFileIDs,
		ArchiveFileID: req.ArchiveFileID,
	}
	sess, err := h.sessionMgr.StartAnalysis(input, cfg)
	if err != nil {
		return fromSessionError(err, "")
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleListSessions returns every live session
func (h *AnalysisHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionMgr.ListSessions())
}

// HandleStatus returns the current status of an analysis session
func (h *AnalysisHandlerImpl) HandleStatus(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleProgressStream streams analysis progress via SSE
func (h *AnalysisHandlerImpl) HandleProgressStream(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		sendSSEError(c, "session not found")
		return nil
	}
	sendSSEData(c, sess)
	if sess.Status != models.SessionStatusRunning {
		return nil
	}

	// Stream updates until the run finishes
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil

		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				sendSSEError(c, "session not found")
				return nil
			}

			sendSSEData(c, sess)

			if sess.Status != models.SessionStatusRunning {
				return nil
			}

		case <-timeout.C:
			sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleKeepAlive extends session lifetime for active viewing
func (h *AnalysisHandlerImpl) HandleKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleRerun re-runs a session, optionally with config overrides applied on
// top of the session's current config
func (h *AnalysisHandlerImpl) HandleRerun(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	var req rerunRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid request body", err)
		}
	}

	var cfg *models.AnalysisConfig
	if len(req.Config) > 0 {
		current, ok := h.sessionMgr.GetSession(id)
		if !ok {
			return NewNotFoundError("session", id)
		}
		merged, err := applyOverrides(current.Config, req.Config)
		if err != nil {
			return err
		}
		cfg = &merged
	}

	sess, err := h.sessionMgr.Rerun(id, cfg)
	if err != nil {
		return fromSessionError(err, id)
	}
	return c.JSON(http.StatusAccepted, sess)
}

// HandleReset discards a session's result
func (h *AnalysisHandlerImpl) HandleReset(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, err := h.sessionMgr.Reset(id)
	if err != nil {
		return fromSessionError(err, id)
	}
	return c.JSON(http.StatusOK, sess)
}

// HandleDeleteSession cancels and removes a session
func (h *AnalysisHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if err := h.sessionMgr.DeleteSession(id); err != nil {
		return fromSessionError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleRecords returns paginated matched records for a session
func (h *AnalysisHandlerImpl) HandleRecords(c echo.Context) error {
	resp, err := h.queryRecords(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleRecordsMsgpack returns paginated matched records in MessagePack format
func (h *AnalysisHandlerImpl) HandleRecordsMsgpack(c echo.Context) error {
	resp, err := h.queryRecords(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *AnalysisHandlerImpl) queryRecords(c echo.Context) (*recordsResponse, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}

	// Parse pagination params
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	params := resultstore.QueryParams{
		Search:        c.QueryParam("search"),
		OverSpeedOnly: c.QueryParam("overSpeedOnly") == "true",
		SortKey:       sess.Config.SortKey,
	}
	if sort := c.QueryParam("sort"); sort != "" {
		params.SortKey = models.SortKey(sort)
		if params.SortKey != models.SortByStart && params.SortKey != models.SortBySpeed {
			return nil, NewValidationError("sort")
		}
	}

	records, total, err := h.sessionMgr.QueryRecords(c.Request().Context(), id, params, page, pageSize)
	if err != nil {
		return nil, fromSessionError(err, id)
	}
	h.sessionMgr.TouchSession(id)

	return &recordsResponse{
		Records:  records,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// HandleSummary returns the report payload plus the per-side capture volumes
func (h *AnalysisHandlerImpl) HandleSummary(c echo.Context) error {
	id := c.Param("sessionId")
	result, err := h.sessionMgr.GetResult(id)
	if err != nil {
		return fromSessionError(err, id)
	}

	return c.JSON(http.StatusOK, summaryResponse{
		Payload:     report.NewPayload(result),
		StartVolume: result.StartVolume,
		EndVolume:   result.EndVolume,
		Config:      result.Config,
	})
}

// HandleSpeedBands returns the average-speed distribution (width in km/h, default 10)
func (h *AnalysisHandlerImpl) HandleSpeedBands(c echo.Context) error {
	id := c.Param("sessionId")

	width := 10.0
	if w := c.QueryParam("width"); w != "" {
		v, err := strconv.ParseFloat(w, 64)
		if err != nil || v <= 0 {
			return NewValidationError("width")
		}
		width = v
	}

	bands, err := h.sessionMgr.SpeedBands(c.Request().Context(), id, width)
	if err != nil {
		return fromSessionError(err, id)
	}
	return c.JSON(http.StatusOK, bands)
}

// HandleDiagnostics returns what happened to every source file
func (h *AnalysisHandlerImpl) HandleDiagnostics(c echo.Context) error {
	id := c.Param("sessionId")
	result, err := h.sessionMgr.GetResult(id)
	if err != nil {
		return fromSessionError(err, id)
	}
	return c.JSON(http.StatusOK, result.Diagnostics)
}

// HandleExport downloads the result as csv, json, msgpack or html
func (h *AnalysisHandlerImpl) HandleExport(c echo.Context) error {
	id := c.Param("sessionId")
	result, err := h.sessionMgr.GetResult(id)
	if err != nil {
		return fromSessionError(err, id)
	}

	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}

	var (
		data        []byte
		contentType string
	)
	payload := report.NewPayload(result)
	switch format {
	case "csv":
		data, err = report.CSV(result.Records)
		contentType = "text/csv; charset=utf-8"
	case "json":
		data, err = payload.JSON()
		contentType = echo.MIMEApplicationJSONCharsetUTF8
	case "msgpack":
		data, err = payload.Msgpack()
		contentType = "application/msgpack"
	case "html":
		data, err = payload.HTML()
		contentType = echo.MIMETextHTMLCharsetUTF8
	default:
		return NewValidationError("format")
	}
	if err != nil {
		return NewInternalError("failed to render export", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", exportFileName(id, format)))
	return c.Blob(http.StatusOK, contentType, data)
}

// Request/Response types

type startAnalysisRequest struct {
	StartFileIDs  []string        `json:"startFileIds"`
	EndFileIDs    []string        `json:"endFileIds"`
	ArchiveFileID string          `json:"archiveFileId"`
	Config        json.RawMessage `json:"config,omitempty"`
}

type rerunRequest struct {
	Config json.RawMessage `json:"config,omitempty"`
}

type recordsResponse struct {
	Records  []models.MatchedRecord `json:"records" msgpack:"records"`
	Page     int                    `json:"page" msgpack:"page"`
	PageSize int                    `json:"pageSize" msgpack:"pageSize"`
	Total    int                    `json:"total" msgpack:"total"`
}

type summaryResponse struct {
	report.Payload
	StartVolume []models.HourCount    `json:"startVolume"`
	EndVolume   []models.HourCount    `json:"endVolume"`
	Config      models.AnalysisConfig `json:"config"`
}

// Helper functions

// applyOverrides decodes a partial JSON config on top of base.
func applyOverrides(base models.AnalysisConfig, raw json.RawMessage) (models.AnalysisConfig, error) {
	cfg := base
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return base, NewBadRequestError("invalid config overrides", err)
	}
	if err := cfg.Validate(); err != nil {
		return base, NewBadRequestError("invalid analysis config", err)
	}
	return cfg, nil
}

func exportFileName(id, format string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("section_speed_%s.%s", id, format)
}

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func sendSSEError(c echo.Context, message string) {
	sendSSEData(c, map[string]string{"error": message})
}
