package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AnalysisConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *AnalysisConfig) {}},
		{name: "zero section", mutate: func(c *AnalysisConfig) { c.SectionLengthKm = 0 }, wantErr: true},
		{name: "zero threshold", mutate: func(c *AnalysisConfig) { c.OverSpeedKmh = 0 }, wantErr: true},
		{name: "inverted window", mutate: func(c *AnalysisConfig) { c.MinTransitSeconds = 100; c.MaxTransitSeconds = 50 }, wantErr: true},
		{name: "same prefixes", mutate: func(c *AnalysisConfig) { c.EndPrefix = c.StartPrefix }, wantErr: true},
		{name: "empty prefix", mutate: func(c *AnalysisConfig) { c.StartPrefix = "" }, wantErr: true},
		{name: "unknown policy", mutate: func(c *AnalysisConfig) { c.MergePolicy = "newest" }, wantErr: true},
		{name: "unknown sort", mutate: func(c *AnalysisConfig) { c.SortKey = "plate" }, wantErr: true},
		{name: "unknown mode", mutate: func(c *AnalysisConfig) { c.ExtractMode = "binary" }, wantErr: true},
		{name: "unknown zone", mutate: func(c *AnalysisConfig) { c.TimeZone = "Mars/Olympus" }, wantErr: true},
		{name: "empty zone means utc", mutate: func(c *AnalysisConfig) { c.TimeZone = "" }},
		{name: "last overwrite", mutate: func(c *AnalysisConfig) { c.MergePolicy = MergeLastOverwrite }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAnalysisConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAnalysisConfig_Location(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	assert.Equal(t, time.UTC, cfg.Location())

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestCheckpointLog_CaptureHourCounts(t *testing.T) {
	h7 := 7
	log := NewCheckpointLog(SideStart, MergeEarliestWins)
	log.Events["A"] = CrossingEvent{Plate: "A", Instant: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), SourceHour: &h7}
	log.Events["B"] = CrossingEvent{Plate: "B", Instant: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	log.Events["C"] = CrossingEvent{Plate: "C", Instant: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}

	assert.Equal(t, []HourCount{{Hour: 7, Count: 1}, {Hour: 8, Count: 1}, {Hour: 9, Count: 1}}, log.CaptureHourCounts())
	assert.Equal(t, []string{"A", "B", "C"}, log.Plates())
}

func TestKindForName(t *testing.T) {
	assert.Equal(t, FileKindArchive, KindForName("bundle.ZIP"))
	assert.Equal(t, FileKindLog, KindForName("START_2024050108.txt"))
}
