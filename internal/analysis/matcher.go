// Package analysis joins the two checkpoint logs and derives section metrics.
package analysis

import (
	"sort"

	"github.com/section-speed/backend/internal/models"
)

// MatchResult is the joined record table plus the tallies of what did not join.
type MatchResult struct {
	Records   []models.MatchedRecord
	StartOnly int // plates seen only at the start checkpoint
	EndOnly   int // plates seen only at the end checkpoint
	Rejected  int // joined plates dropped by the plausibility window
}

// Match inner-joins start and end on plate. Pairs whose transit time is zero
// or outside [MinTransitSeconds, MaxTransitSeconds] are dropped before any
// aggregate sees them. Records are ordered by cfg.SortKey.
func Match(start, end *models.CheckpointLog, cfg models.AnalysisConfig) MatchResult {
	res := MatchResult{Records: make([]models.MatchedRecord, 0)}

	for _, plate := range start.Plates() {
		s := start.Events[plate]
		e, ok := end.Events[plate]
		if !ok {
			res.StartOnly++
			continue
		}
		rec, ok := Pair(s, e, cfg)
		if !ok {
			res.Rejected++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	for plate := range end.Events {
		if _, ok := start.Events[plate]; !ok {
			res.EndOnly++
		}
	}

	SortRecords(res.Records, cfg.SortKey)
	return res
}

// TransitSeconds is end - start in seconds; negative when the logs disagree.
func TransitSeconds(start, end models.CrossingEvent) float64 {
	return end.Instant.Sub(start.Instant).Seconds()
}

// Pair derives one MatchedRecord. ok is false when the transit time is zero
// (speed undefined) or outside the plausibility window.
func Pair(start, end models.CrossingEvent, cfg models.AnalysisConfig) (models.MatchedRecord, bool) {
	transit := TransitSeconds(start, end)
	if transit == 0 || transit < cfg.MinTransitSeconds || transit > cfg.MaxTransitSeconds {
		return models.MatchedRecord{}, false
	}

	// km / (s / 3600) rearranged to keep whole-second cases exact
	avg := cfg.SectionLengthKm * 3600 / transit

	return models.MatchedRecord{
		Plate:          start.Plate,
		StartInstant:   start.Instant,
		StartSpeed:     start.Speed,
		EndInstant:     end.Instant,
		EndSpeed:       end.Speed,
		TransitSeconds: transit,
		AvgSpeedKmh:    avg,
		IsOverSpeed:    avg >= cfg.OverSpeedKmh,
	}, true
}

// SortRecords orders records in place. Ties fall back to plate so the order
// is fully determined by the data.
func SortRecords(records []models.MatchedRecord, key models.SortKey) {
	switch key {
	case models.SortBySpeed:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].AvgSpeedKmh != records[j].AvgSpeedKmh {
				return records[i].AvgSpeedKmh > records[j].AvgSpeedKmh
			}
			return records[i].Plate < records[j].Plate
		})
	default:
		sort.SliceStable(records, chronological(records))
	}
}

func chronological(records []models.MatchedRecord) func(i, j int) bool {
	return func(i, j int) bool {
		if !records[i].StartInstant.Equal(records[j].StartInstant) {
			return records[i].StartInstant.Before(records[j].StartInstant)
		}
		return records[i].Plate < records[j].Plate
	}
}
