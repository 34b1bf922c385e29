// Package session runs analyses asynchronously and keeps each session's
// analysis context and record store until it is cleaned up.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/section-speed/backend/internal/analysis"
	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/resultstore"
	"github.com/section-speed/backend/internal/source"
	"github.com/section-speed/backend/internal/storage"
)

// DefaultMaxSessions limits concurrent sessions to prevent memory exhaustion
const DefaultMaxSessions = 10

// SessionMaxAge is how long to keep completed sessions before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session is running")
	ErrTooManySessions = errors.New("too many active sessions")
	ErrNoResult        = errors.New("session has no result")
	ErrInvalidInput    = errors.New("invalid session input")
)

// Options configures a Manager.
type Options struct {
	TempDir     string
	MaxSessions int
	Workers     int
}

// Manager handles analysis sessions.
type Manager struct {
	sessions    map[string]*SessionState
	mu          sync.RWMutex
	store       storage.Store
	pipeline    *analysis.Pipeline
	tempDir     string
	maxSessions int
}

// SessionState holds the session metadata, its analysis context and the
// DuckDB-backed record table.
type SessionState struct {
	Session      *models.AnalysisSession
	Context      *analysis.Context
	Records      *resultstore.DuckStore // nil until the first successful run
	LastAccessed time.Time
	cancel       context.CancelFunc
}

// NewManager creates a session manager reading uploads from store.
func NewManager(store storage.Store, opts Options) *Manager {
	if opts.TempDir == "" {
		opts.TempDir = os.Getenv("DUCKDB_TEMP_DIR")
	}
	if opts.TempDir == "" {
		opts.TempDir = "./data/temp"
	}
	os.MkdirAll(opts.TempDir, 0755)

	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}

	return &Manager{
		sessions:    make(map[string]*SessionState),
		store:       store,
		pipeline:    analysis.NewPipeline(nil, opts.Workers),
		tempDir:     opts.TempDir,
		maxSessions: opts.MaxSessions,
	}
}

// StartAnalysis creates a session and runs its first analysis in the background.
func (m *Manager) StartAnalysis(input models.SessionInput, cfg models.AnalysisConfig) (*models.AnalysisSession, error) {
	if err := m.validateInput(input); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	session := models.NewAnalysisSession(sessionID, input, cfg)
	session.Status = models.SessionStatusRunning

	ctx, cancel := context.WithCancel(context.Background())
	state := &SessionState{
		Session:      session,
		Context:      analysis.NewContext(m.pipeline),
		LastAccessed: time.Now(),
		cancel:       cancel,
	}

	m.mu.Lock()
	if len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		cancel()
		return nil, ErrTooManySessions
	}
	m.sessions[sessionID] = state
	snapshot := copySession(session)
	m.mu.Unlock()

	go m.runAnalysis(ctx, sessionID)

	return snapshot, nil
}

// Rerun analyses the session's inputs again, optionally with a new config.
// The previous result is replaced when the run finishes.
func (m *Manager) Rerun(id string, cfg *models.AnalysisConfig) (*models.AnalysisSession, error) {
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	m.mu.Lock()
	state, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if state.Session.Status == models.SessionStatusRunning {
		m.mu.Unlock()
		return nil, ErrSessionBusy
	}
	if cfg != nil {
		state.Session.Config = *cfg
	}
	ctx, cancel := context.WithCancel(context.Background())
	state.cancel = cancel
	state.Session.Status = models.SessionStatusRunning
	state.Session.Progress = 0
	state.Session.Errors = make([]string, 0)
	state.LastAccessed = time.Now()
	snapshot := copySession(state.Session)
	m.mu.Unlock()

	go m.runAnalysis(ctx, id)

	return snapshot, nil
}

// Reset discards the session's result. Its inputs and config are kept so it
// can be re-run.
func (m *Manager) Reset(id string) (*models.AnalysisSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if state.Session.Status == models.SessionStatusRunning {
		return nil, ErrSessionBusy
	}

	state.Context.Reset()
	if state.Records != nil {
		state.Records.Close()
		state.Records = nil
	}
	state.Session.Status = models.SessionStatusReset
	state.Session.Progress = 0
	state.Session.MatchedCount = 0
	state.Session.Errors = make([]string, 0)
	state.LastAccessed = time.Now()

	log.Info().Str("session", shortID(id)).Msg("session reset")
	return copySession(state.Session), nil
}

// DeleteSession cancels any running analysis and releases the session.
func (m *Manager) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	m.releaseLocked(id, state)
	return nil
}

// Close releases every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, state := range m.sessions {
		m.releaseLocked(id, state)
	}
}

func (m *Manager) releaseLocked(id string, state *SessionState) {
	if state.cancel != nil {
		state.cancel()
	}
	if state.Records != nil {
		state.Records.Close()
	}
	delete(m.sessions, id)
}

func (m *Manager) validateInput(input models.SessionInput) error {
	hasFiles := len(input.StartFileIDs) > 0 || len(input.EndFileIDs) > 0
	switch {
	case input.ArchiveFileID != "" && hasFiles:
		return fmt.Errorf("%w: give either an archive or file lists, not both", ErrInvalidInput)
	case input.ArchiveFileID != "":
		info, err := m.store.Get(input.ArchiveFileID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if info.Kind != models.FileKindArchive {
			return fmt.Errorf("%w: %s is not a zip archive", ErrInvalidInput, info.Name)
		}
		return nil
	case len(input.StartFileIDs) == 0 || len(input.EndFileIDs) == 0:
		return fmt.Errorf("%w: both start and end files are required", ErrInvalidInput)
	}

	for _, id := range append(append([]string{}, input.StartFileIDs...), input.EndFileIDs...) {
		if _, err := m.store.Get(id); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return nil
}

func (m *Manager) inputs(input models.SessionInput) analysis.Inputs {
	if input.ArchiveFileID != "" {
		zs := source.NewZipUploadSource(m.store, input.ArchiveFileID)
		return analysis.Inputs{Start: zs, End: zs}
	}
	return analysis.Inputs{
		Start: source.NewUploadSource(m.store, input.StartFileIDs),
		End:   source.NewUploadSource(m.store, input.EndFileIDs),
	}
}

func (m *Manager) runAnalysis(ctx context.Context, sessionID string) {
	logger := log.With().Str("session", shortID(sessionID)).Logger()

	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("analysis panicked")
			m.updateSessionError(sessionID, fmt.Sprintf("analysis panicked: %v", r))
		}
	}()

	m.mu.RLock()
	state, ok := m.sessions[sessionID]
	if !ok {
		m.mu.RUnlock()
		return
	}
	input := state.Session.Input
	cfg := state.Session.Config
	actx := state.Context
	m.mu.RUnlock()

	start := time.Now()
	logger.Info().Msg("analysis started")

	progressCb := func(done, total int) {
		progress := 90.0
		if total > 0 {
			progress = 5.0 + float64(done)*85.0/float64(total)
		}
		m.mu.Lock()
		if state, ok := m.sessions[sessionID]; ok {
			state.Session.Progress = progress
		}
		m.mu.Unlock()
	}

	result, err := actx.Run(ctx, cfg, m.inputs(input), progressCb)
	if err != nil {
		logger.Error().Err(err).Msg("analysis failed")
		m.dropRecords(sessionID)
		m.updateSessionError(sessionID, err.Error())
		return
	}

	records, err := m.storeRecords(ctx, sessionID, result)
	if err != nil {
		logger.Error().Err(err).Msg("storing records failed")
		actx.Reset()
		m.dropRecords(sessionID)
		m.updateSessionError(sessionID, fmt.Sprintf("storing records: %v", err))
		return
	}

	for _, id := range append(append([]string{input.ArchiveFileID}, input.StartFileIDs...), input.EndFileIDs...) {
		if id != "" {
			m.store.SetStatus(id, "analyzed")
		}
	}

	elapsed := time.Since(start).Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok = m.sessions[sessionID]
	if !ok {
		records.Close()
		return
	}
	state.Records = records
	state.Session.Status = models.SessionStatusComplete
	state.Session.Progress = 100
	state.Session.Runs = actx.Runs()
	state.Session.MatchedCount = len(result.Records)
	state.Session.ProcessingTimeMs = elapsed
	for _, d := range result.Diagnostics {
		if d.Skipped {
			state.Session.Errors = append(state.Session.Errors, fmt.Sprintf("%s: %s", d.FileName, d.Reason))
		}
	}

	logger.Info().Int("matched", len(result.Records)).Int64("elapsedMs", elapsed).Msg("analysis complete")
}

// storeRecords loads the result into the session's record table, creating
// it on first use. Readers keep seeing the previous records until Replace
// swaps them.
func (m *Manager) storeRecords(ctx context.Context, sessionID string, result *models.ResultSet) (*resultstore.DuckStore, error) {
	m.mu.RLock()
	state, ok := m.sessions[sessionID]
	var records *resultstore.DuckStore
	if ok {
		records = state.Records
	}
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	created := false
	if records == nil {
		var err error
		records, err = resultstore.NewDuckStore(m.tempDir, sessionID)
		if err != nil {
			return nil, err
		}
		created = true
	}
	if err := records.Replace(ctx, result.Records, result.Config.Location()); err != nil {
		if created {
			records.Close()
		}
		return nil, err
	}
	return records, nil
}

func (m *Manager) dropRecords(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.sessions[sessionID]; ok && state.Records != nil {
		state.Records.Close()
		state.Records = nil
	}
}

func (m *Manager) updateSessionError(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.SessionStatusError
	state.Session.Runs = state.Context.Runs()
	state.Session.MatchedCount = 0
	state.Session.Errors = append(state.Session.Errors, reason)
}

// cleanupOldSessionsIfNeeded removes idle sessions if at capacity
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.maxSessions {
		return
	}

	// Free the least recently used idle sessions until one slot is available
	toFree := len(m.sessions) - m.maxSessions + 1
	for ; toFree > 0; toFree-- {
		var oldestID string
		var oldest time.Time
		for id, state := range m.sessions {
			if state.Session.Status == models.SessionStatusRunning {
				continue
			}
			if oldestID == "" || state.LastAccessed.Before(oldest) {
				oldestID, oldest = id, state.LastAccessed
			}
		}
		if oldestID == "" {
			return
		}
		m.releaseLocked(oldestID, m.sessions[oldestID])
		log.Info().Str("session", shortID(oldestID)).Msg("cleaned up idle session to free memory")
	}
}

// CleanupOldSessions removes sessions older than maxAge,
// but keeps sessions that have been accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	removed := 0
	for id, state := range m.sessions {
		if state.Session.Status == models.SessionStatusRunning {
			continue
		}

		// Don't clean up sessions that are actively being used
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}

		if state.LastAccessed.Before(cutoff) {
			m.releaseLocked(id, state)
			removed++
			log.Info().Str("session", shortID(id)).
				Dur("idle", time.Since(state.LastAccessed).Round(time.Second)).
				Msg("cleaned up aged session")
		}
	}
	return removed
}

// GetSession returns a snapshot of a session by ID.
func (m *Manager) GetSession(id string) (*models.AnalysisSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return copySession(state.Session), true
}

// ListSessions returns snapshots of every session.
func (m *Manager) ListSessions() []*models.AnalysisSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.AnalysisSession, 0, len(m.sessions))
	for _, state := range m.sessions {
		list = append(list, copySession(state.Session))
	}
	return list
}

// TouchSession updates the LastAccessed timestamp for a session.
// This should be called whenever a session is actively being used
// to prevent it from being cleaned up.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// GetResult returns the session's current result.
func (m *Manager) GetResult(id string) (*models.ResultSet, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	result, ok := state.Context.Result()
	if !ok {
		return nil, ErrNoResult
	}
	return result, nil
}

// QueryRecords returns filtered, sorted and paginated records for a session.
func (m *Manager) QueryRecords(ctx context.Context, id string, params resultstore.QueryParams, page, pageSize int) ([]models.MatchedRecord, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, 0, ErrSessionNotFound
	}
	if state.Records == nil {
		return nil, 0, ErrNoResult
	}
	return state.Records.QueryRecords(ctx, params, page, pageSize)
}

// SpeedBands returns the average-speed distribution of a session's records.
func (m *Manager) SpeedBands(ctx context.Context, id string, widthKmh float64) ([]resultstore.SpeedBand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if state.Records == nil {
		return nil, ErrNoResult
	}
	return state.Records.SpeedBands(ctx, widthKmh)
}

func copySession(s *models.AnalysisSession) *models.AnalysisSession {
	c := *s
	c.Errors = append([]string(nil), s.Errors...)
	c.Input.StartFileIDs = append([]string(nil), s.Input.StartFileIDs...)
	c.Input.EndFileIDs = append([]string(nil), s.Input.EndFileIDs...)
	return &c
}

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
