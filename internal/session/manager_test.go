package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/resultstore"
	"github.com/section-speed/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, *testutil.MockStorage) {
	store := testutil.NewMockStorage()
	m := NewManager(store, Options{TempDir: t.TempDir(), MaxSessions: 3, Workers: 2})
	t.Cleanup(m.Close)
	return m, store
}

// addLogs stores one start file with three plates and one end file with two of them.
func addLogs(store *testutil.MockStorage) models.SessionInput {
	start := testutil.CompactLine(base, "12가3456") +
		testutil.CompactLine(base.Add(time.Minute), "34나5678") +
		testutil.CompactLine(base.Add(2*time.Minute), "AB1234")
	end := testutil.CompactLine(base.Add(120*time.Second), "12가3456") +
		testutil.CompactLine(base.Add(time.Minute+47500*time.Millisecond), "34나5678")

	store.AddFile("s1", "START_2024031508.txt", []byte(start))
	store.AddFile("e1", "END_2024031508.txt", []byte(end))
	return models.SessionInput{StartFileIDs: []string{"s1"}, EndFileIDs: []string{"e1"}}
}

func waitForStatus(t *testing.T, m *Manager, id string) *models.AnalysisSession {
	t.Helper()
	var sess *models.AnalysisSession
	require.Eventually(t, func() bool {
		s, ok := m.GetSession(id)
		if !ok {
			return false
		}
		sess = s
		return s.Status != models.SessionStatusRunning
	}, 5*time.Second, 20*time.Millisecond)
	return sess
}

func TestStartAnalysis(t *testing.T) {
	m, store := newTestManager(t)
	input := addLogs(store)

	sess, err := m.StartAnalysis(input, models.DefaultAnalysisConfig())
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusRunning, sess.Status)

	done := waitForStatus(t, m, sess.ID)
	require.Equal(t, models.SessionStatusComplete, done.Status, "errors: %v", done.Errors)
	assert.Equal(t, 100.0, done.Progress)
	assert.Equal(t, 2, done.MatchedCount)
	assert.Equal(t, 1, done.Runs)

	result, err := m.GetResult(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Summary.StartCount)
	assert.Equal(t, 1, result.Summary.StartOnlyCount)
	assert.Equal(t, 66.67, result.Summary.PassRate)

	records, total, err := m.QueryRecords(context.Background(), sess.ID, resultstore.QueryParams{SortKey: models.SortBySpeed}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "34나5678", records[0].Plate)
	assert.InDelta(t, 60.63, records[0].AvgSpeedKmh, 0.01)

	info, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "analyzed", info.Status)
}

func TestStartAnalysis_FromArchive(t *testing.T) {
	m, store := newTestManager(t)
	archive := testutil.ZipArchive(t, map[string]string{
		"logs/START_2024031508.txt": testutil.CompactLine(base, "12가3456"),
		"logs/END_2024031508.txt":   testutil.CompactLine(base.Add(96*time.Second), "12가3456"),
		"readme.md":                 "ignored",
	})
	store.AddFile("z1", "day.zip", archive)

	sess, err := m.StartAnalysis(models.SessionInput{ArchiveFileID: "z1"}, models.DefaultAnalysisConfig())
	require.NoError(t, err)

	done := waitForStatus(t, m, sess.ID)
	require.Equal(t, models.SessionStatusComplete, done.Status, "errors: %v", done.Errors)

	result, err := m.GetResult(sess.ID)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.InDelta(t, 30.0, result.Records[0].AvgSpeedKmh, 1e-9)
}

func TestStartAnalysis_InvalidInput(t *testing.T) {
	m, store := newTestManager(t)
	input := addLogs(store)
	store.AddFile("z1", "day.zip", []byte("PK"))

	badCfg := models.DefaultAnalysisConfig()
	badCfg.SectionLengthKm = 0

	tests := []struct {
		name  string
		input models.SessionInput
		cfg   models.AnalysisConfig
	}{
		{"no files", models.SessionInput{}, models.DefaultAnalysisConfig()},
		{"start only", models.SessionInput{StartFileIDs: []string{"s1"}}, models.DefaultAnalysisConfig()},
		{"unknown file", models.SessionInput{StartFileIDs: []string{"s1"}, EndFileIDs: []string{"nope"}}, models.DefaultAnalysisConfig()},
		{"archive and files", models.SessionInput{StartFileIDs: []string{"s1"}, EndFileIDs: []string{"e1"}, ArchiveFileID: "z1"}, models.DefaultAnalysisConfig()},
		{"log as archive", models.SessionInput{ArchiveFileID: "s1"}, models.DefaultAnalysisConfig()},
		{"bad config", input, badCfg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.StartAnalysis(tt.input, tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestStartAnalysis_CorruptArchive(t *testing.T) {
	m, store := newTestManager(t)
	store.AddFile("z1", "broken.zip", []byte("not a zip"))

	sess, err := m.StartAnalysis(models.SessionInput{ArchiveFileID: "z1"}, models.DefaultAnalysisConfig())
	require.NoError(t, err)

	done := waitForStatus(t, m, sess.ID)
	assert.Equal(t, models.SessionStatusError, done.Status)
	assert.NotEmpty(t, done.Errors)

	_, err = m.GetResult(sess.ID)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestRerunAndReset(t *testing.T) {
	m, store := newTestManager(t)
	input := addLogs(store)

	sess, err := m.StartAnalysis(input, models.DefaultAnalysisConfig())
	require.NoError(t, err)
	waitForStatus(t, m, sess.ID)

	t.Run("rerun replaces result", func(t *testing.T) {
		cfg := models.DefaultAnalysisConfig()
		cfg.MaxTransitSeconds = 100 // drops the 120 s pair
		_, err := m.Rerun(sess.ID, &cfg)
		require.NoError(t, err)

		done := waitForStatus(t, m, sess.ID)
		require.Equal(t, models.SessionStatusComplete, done.Status)
		assert.Equal(t, 2, done.Runs)
		assert.Equal(t, 1, done.MatchedCount)

		_, total, err := m.QueryRecords(context.Background(), sess.ID, resultstore.QueryParams{}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		result, err := m.GetResult(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Summary.RejectedCount)
	})

	t.Run("rerun with same config is idempotent", func(t *testing.T) {
		before, err := m.GetResult(sess.ID)
		require.NoError(t, err)

		_, err = m.Rerun(sess.ID, nil)
		require.NoError(t, err)
		waitForStatus(t, m, sess.ID)

		after, err := m.GetResult(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Records, after.Records)
		assert.Equal(t, before.Summary, after.Summary)
	})

	t.Run("reset clears result", func(t *testing.T) {
		reset, err := m.Reset(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusReset, reset.Status)

		_, err = m.GetResult(sess.ID)
		assert.ErrorIs(t, err, ErrNoResult)
		_, _, err = m.QueryRecords(context.Background(), sess.ID, resultstore.QueryParams{}, 1, 10)
		assert.ErrorIs(t, err, ErrNoResult)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := m.Rerun("missing", nil)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = m.Reset("missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestCleanupOldSessions(t *testing.T) {
	m, store := newTestManager(t)
	input := addLogs(store)

	sess, err := m.StartAnalysis(input, models.DefaultAnalysisConfig())
	require.NoError(t, err)
	waitForStatus(t, m, sess.ID)

	// Recently touched sessions survive
	assert.Equal(t, 0, m.CleanupOldSessions(time.Nanosecond))

	m.mu.Lock()
	m.sessions[sess.ID].LastAccessed = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	assert.Equal(t, 1, m.CleanupOldSessions(30*time.Minute))
	_, ok := m.GetSession(sess.ID)
	assert.False(t, ok)
}

func TestMaxSessionsEvictsIdle(t *testing.T) {
	m, store := newTestManager(t)
	input := addLogs(store)

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		sess, err := m.StartAnalysis(input, models.DefaultAnalysisConfig())
		require.NoError(t, err)
		waitForStatus(t, m, sess.ID)
		ids = append(ids, sess.ID)
	}

	assert.Len(t, m.ListSessions(), 3)
	_, ok := m.GetSession(ids[0])
	assert.False(t, ok, "least recently used session should be evicted")
	_, ok = m.GetSession(ids[3])
	assert.True(t, ok)
}
