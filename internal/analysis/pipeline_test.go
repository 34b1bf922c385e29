package analysis

import (
	"context"
	"sync"
	"testing"

	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/source"
	"github.com/section-speed/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workedExampleInputs() Inputs {
	start := testutil.CompactLine(at(1, 8, 0, 0, 0), "12가3456") +
		testutil.CompactLine(at(1, 8, 0, 0, 0), "34나5678") +
		testutil.CompactLine(at(1, 8, 0, 10, 0), "99다9999")
	end := testutil.VerboseLine(at(1, 8, 2, 0, 0), "12가3456", 55.5) +
		testutil.VerboseLine(at(1, 8, 0, 47, 500), "34나5678", -1)

	files := source.NewMemorySource(
		source.NamedBytes{Name: "START_2024050108.txt", Data: []byte(start)},
		source.NamedBytes{Name: "START_notes.txt", Data: []byte(start)},
		source.NamedBytes{Name: "END_2024050108.txt", Data: []byte(end)},
	)
	return Inputs{Start: files, End: files}
}

func TestPipeline_WorkedExample(t *testing.T) {
	p := NewPipeline(nil, 2)
	cfg := models.DefaultAnalysisConfig()

	var mu sync.Mutex
	var lastDone, total int
	result, err := p.Run(context.Background(), cfg, workedExampleInputs(), func(done, tot int) {
		mu.Lock()
		defer mu.Unlock()
		if done > lastDone {
			lastDone = done
		}
		total = tot
	})
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	first, second := result.Records[0], result.Records[1]
	assert.Equal(t, "12가3456", first.Plate)
	assert.InDelta(t, 120, first.TransitSeconds, 1e-9)
	assert.InDelta(t, 24, first.AvgSpeedKmh, 1e-9)
	assert.False(t, first.IsOverSpeed)
	require.NotNil(t, first.EndSpeed)
	assert.Equal(t, 55.5, *first.EndSpeed)
	assert.Nil(t, first.StartSpeed)

	assert.Equal(t, "34나5678", second.Plate)
	assert.InDelta(t, 47.5, second.TransitSeconds, 1e-9)
	assert.InDelta(t, 60.63, second.AvgSpeedKmh, 0.005)
	assert.False(t, second.IsOverSpeed)

	sum := result.Summary
	assert.Equal(t, 3, sum.StartCount)
	assert.Equal(t, 2, sum.EndCount)
	assert.Equal(t, 1, sum.StartOnlyCount)
	assert.Equal(t, 66.67, sum.PassRate)

	assert.Equal(t, []models.MonthCount{{Month: "2024-05", Count: 2}}, result.MonthlyCounts)
	assert.Equal(t, []models.HourCount{{Hour: 8, Count: 3}}, result.StartVolume)
	require.Len(t, result.TopWeekdayHours, 1)
	assert.Equal(t, "Wednesday 08:00", result.TopWeekdayHours[0].Label)

	require.Len(t, result.Diagnostics, 3)
	skipped := 0
	for _, d := range result.Diagnostics {
		if d.Skipped {
			skipped++
			assert.Equal(t, "START_notes.txt", d.FileName)
		} else {
			assert.Equal(t, source.EncodingUTF8, d.Encoding)
		}
	}
	assert.Equal(t, 1, skipped)

	assert.Equal(t, 3, total)
	assert.Equal(t, 3, lastDone)
}

func TestPipeline_Threshold60FlagsOverSpeed(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	cfg.OverSpeedKmh = 60

	result, err := NewPipeline(nil, 1).Run(context.Background(), cfg, workedExampleInputs(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.OverSpeedCount)
}

func TestPipeline_Idempotent(t *testing.T) {
	p := NewPipeline(nil, 4)
	cfg := models.DefaultAnalysisConfig()

	a, err := p.Run(context.Background(), cfg, workedExampleInputs(), nil)
	require.NoError(t, err)
	b, err := p.Run(context.Background(), cfg, workedExampleInputs(), nil)
	require.NoError(t, err)

	assert.Equal(t, a.Records, b.Records)
	assert.Equal(t, a.Summary, b.Summary)
	assert.Equal(t, a.MonthlyCounts, b.MonthlyCounts)
	assert.Equal(t, a.TopWeekdayHours, b.TopWeekdayHours)
	assert.Equal(t, a.Diagnostics, b.Diagnostics)
}

func TestPipeline_FixedModeSkipsOtherGrammar(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	cfg.ExtractMode = models.ExtractCompact

	result, err := NewPipeline(nil, 2).Run(context.Background(), cfg, workedExampleInputs(), nil)
	require.NoError(t, err)

	// Verbose end lines carry no Plate= token
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.Summary.EndCount)
	assert.Equal(t, 0.0, result.Summary.PassRate)
}

func TestPipeline_EmptyStartSide(t *testing.T) {
	end := testutil.VerboseLine(at(1, 8, 2, 0, 0), "12가3456", 55.5)
	files := source.NewMemorySource(source.NamedBytes{Name: "END_2024050108.txt", Data: []byte(end)})

	result, err := NewPipeline(nil, 1).Run(context.Background(), models.DefaultAnalysisConfig(), Inputs{Start: files, End: files}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, 0.0, result.Summary.PassRate)
	assert.Equal(t, 1, result.Summary.EndOnlyCount)
}

func TestPipeline_Errors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		_, err := NewPipeline(nil, 1).Run(context.Background(), models.DefaultAnalysisConfig(), Inputs{}, nil)
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := models.DefaultAnalysisConfig()
		cfg.SectionLengthKm = 0
		_, err := NewPipeline(nil, 1).Run(context.Background(), cfg, workedExampleInputs(), nil)
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewPipeline(nil, 1).Run(ctx, models.DefaultAnalysisConfig(), workedExampleInputs(), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unreadable directory", func(t *testing.T) {
		dir := source.NewDirSource(t.TempDir() + "/missing")
		_, err := NewPipeline(nil, 1).Run(context.Background(), models.DefaultAnalysisConfig(), Inputs{Start: dir, End: dir}, nil)
		assert.Error(t, err)
	})
}
