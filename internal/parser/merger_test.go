package parser

import (
	"testing"
	"time"

	"github.com/section-speed/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extracted(name string, events map[string]time.Time) *models.ExtractedFile {
	f := models.NewExtractedFile(name)
	for plate, ts := range events {
		f.Events[plate] = models.CrossingEvent{Plate: plate, Instant: ts, SourceFile: name}
	}
	return f
}

func TestMergeCheckpoint(t *testing.T) {
	files := func() []*models.ExtractedFile {
		return []*models.ExtractedFile{
			extracted("START_2024031510.txt", map[string]time.Time{
				"A": ms(10, 0, 0, 0),
				"B": ms(10, 5, 0, 0),
			}),
			nil,
			extracted("START_2024031511.txt", map[string]time.Time{
				"A": ms(9, 59, 0, 0),
				"B": ms(10, 6, 0, 0),
				"C": ms(11, 0, 0, 0),
			}),
		}
	}

	t.Run("earliest wins", func(t *testing.T) {
		log := MergeCheckpoint(models.SideStart, models.MergeEarliestWins, files())

		require.Equal(t, 3, log.Len())
		assert.True(t, ms(9, 59, 0, 0).Equal(log.Events["A"].Instant))
		assert.True(t, ms(10, 5, 0, 0).Equal(log.Events["B"].Instant))
		assert.Equal(t, 5, log.Observations)
		assert.Equal(t, []string{"START_2024031510.txt", "START_2024031511.txt"}, log.Files)
		assert.Equal(t, models.MergeEarliestWins, log.Policy)
	})

	t.Run("last overwrite", func(t *testing.T) {
		log := MergeCheckpoint(models.SideStart, models.MergeLastOverwrite, files())

		assert.True(t, ms(9, 59, 0, 0).Equal(log.Events["A"].Instant))
		assert.True(t, ms(10, 6, 0, 0).Equal(log.Events["B"].Instant))
		assert.Equal(t, "START_2024031511.txt", log.Events["B"].SourceFile)
	})

	t.Run("equal instants keep the first file", func(t *testing.T) {
		same := []*models.ExtractedFile{
			extracted("a.txt", map[string]time.Time{"A": ms(10, 0, 0, 0)}),
			extracted("b.txt", map[string]time.Time{"A": ms(10, 0, 0, 0)}),
		}
		log := MergeCheckpoint(models.SideEnd, models.MergeEarliestWins, same)
		assert.Equal(t, "a.txt", log.Events["A"].SourceFile)
	})

	t.Run("no files", func(t *testing.T) {
		log := MergeCheckpoint(models.SideEnd, models.MergeEarliestWins, nil)
		assert.Equal(t, 0, log.Len())
		assert.Empty(t, log.Files)
	})
}
