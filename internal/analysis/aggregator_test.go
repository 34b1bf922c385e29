package analysis

import (
	"testing"
	"time"

	"github.com/section-speed/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassRate(t *testing.T) {
	tests := []struct {
		matched, start int
		want           float64
	}{
		{2, 3, 66.67},
		{1, 3, 33.33},
		{3, 3, 100},
		{0, 5, 0},
		{0, 0, 0},
		{1, 7, 14.29},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PassRate(tt.matched, tt.start), "%d/%d", tt.matched, tt.start)
	}
}

func TestSummarize(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	start := checkpoint(models.SideStart, map[string]time.Time{"A": at(1, 8, 0, 0, 0), "B": at(1, 8, 0, 0, 0), "C": at(1, 8, 0, 0, 0)})
	end := checkpoint(models.SideEnd, map[string]time.Time{"A": at(1, 8, 2, 0, 0), "B": at(1, 8, 0, 40, 0)})

	match := Match(start, end, cfg)
	sum := Summarize(match, start, end, cfg)

	assert.Equal(t, 3, sum.StartCount)
	assert.Equal(t, 2, sum.EndCount)
	assert.Equal(t, 2, sum.MatchedCount)
	assert.Equal(t, 1, sum.StartOnlyCount)
	assert.Equal(t, 66.67, sum.PassRate)
	assert.InDelta(t, 80, sum.MeanTransit, 1e-9)
	assert.InDelta(t, (24.0+72.0)/2, sum.MeanSpeed, 1e-9)
	assert.Equal(t, 1, sum.OverSpeedCount)
	assert.Equal(t, models.MergeEarliestWins, sum.MergePolicy)
	assert.Equal(t, cfg.SpeedLimitKmh, sum.SpeedLimitKmh)
}

func TestSummarize_Empty(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	start := models.NewCheckpointLog(models.SideStart, cfg.MergePolicy)
	end := models.NewCheckpointLog(models.SideEnd, cfg.MergePolicy)

	sum := Summarize(Match(start, end, cfg), start, end, cfg)
	assert.Zero(t, sum.MatchedCount)
	assert.Zero(t, sum.MeanTransit)
	assert.Zero(t, sum.MeanSpeed)
	assert.Zero(t, sum.PassRate)

	assert.Empty(t, MonthlyCounts(nil))
	assert.Empty(t, StartHourCounts(nil))
	assert.Empty(t, TopWeekdayHours(nil, TopBuckets))
}

func TestMonthlyCounts(t *testing.T) {
	records := []models.MatchedRecord{
		{StartInstant: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		{StartInstant: time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)},
		{StartInstant: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)},
	}

	assert.Equal(t, []models.MonthCount{
		{Month: "2023-12", Count: 1},
		{Month: "2024-01", Count: 2},
	}, MonthlyCounts(records))
}

func TestHourCounts(t *testing.T) {
	records := []models.MatchedRecord{
		{StartInstant: at(1, 23, 59, 30, 0), EndInstant: at(2, 0, 0, 30, 0)},
		{StartInstant: at(1, 8, 0, 0, 0), EndInstant: at(1, 8, 1, 0, 0)},
		{StartInstant: at(1, 8, 30, 0, 0), EndInstant: at(1, 8, 31, 0, 0)},
	}

	assert.Equal(t, []models.HourCount{{Hour: 8, Count: 2}, {Hour: 23, Count: 1}}, StartHourCounts(records))
	assert.Equal(t, []models.HourCount{{Hour: 0, Count: 1}, {Hour: 8, Count: 2}}, EndHourCounts(records))
}

func TestTopWeekdayHours(t *testing.T) {
	// 2024-03-15 is a Friday; given out of order on purpose
	day := func(d, h, m int) models.MatchedRecord {
		return models.MatchedRecord{StartInstant: time.Date(2024, 3, d, h, m, 0, 0, time.UTC)}
	}
	records := []models.MatchedRecord{
		day(17, 11, 30),
		day(16, 10, 0),
		day(15, 9, 10),
		day(17, 11, 0),
		day(15, 8, 30),
		day(15, 9, 0),
		day(15, 8, 0),
	}

	top := TopWeekdayHours(records, TopBuckets)
	require.Len(t, top, 3)
	assert.Equal(t, "Friday 08:00", top[0].Label)
	assert.Equal(t, "Friday 09:00", top[1].Label)
	assert.Equal(t, "Sunday 11:00", top[2].Label)
	for _, b := range top {
		assert.Equal(t, 2, b.Count)
	}
	assert.Equal(t, "Friday", top[0].Weekday)
	assert.Equal(t, 8, top[0].Hour)

	// Input slice is left alone
	assert.Equal(t, 17, records[0].StartInstant.Day())
}

func TestTopWeekdayHours_CountWins(t *testing.T) {
	day := func(d, h int) models.MatchedRecord {
		return models.MatchedRecord{StartInstant: time.Date(2024, 3, d, h, 0, 0, 0, time.UTC)}
	}
	records := []models.MatchedRecord{day(15, 8), day(16, 10), day(16, 10), day(16, 10)}

	top := TopWeekdayHours(records, TopBuckets)
	require.Len(t, top, 2)
	assert.Equal(t, "Saturday 10:00", top[0].Label)
	assert.Equal(t, 3, top[0].Count)
}
