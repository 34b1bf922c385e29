package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/section-speed/backend/internal/models"
)

// TopBuckets is the number of weekday x hour buckets kept in reports.
const TopBuckets = 3

// Summarize computes the scalar aggregates. Means are zero when no record
// survived filtering; pass-rate is zero when the start side is empty.
func Summarize(match MatchResult, start, end *models.CheckpointLog, cfg models.AnalysisConfig) models.Summary {
	sum := models.Summary{
		StartCount:     start.Len(),
		EndCount:       end.Len(),
		MatchedCount:   len(match.Records),
		StartOnlyCount: match.StartOnly,
		EndOnlyCount:   match.EndOnly,
		RejectedCount:  match.Rejected,
		PassRate:       PassRate(len(match.Records), start.Len()),
		SpeedLimitKmh:  cfg.SpeedLimitKmh,
		OverSpeedKmh:   cfg.OverSpeedKmh,
		MergePolicy:    cfg.MergePolicy,
	}

	if len(match.Records) == 0 {
		return sum
	}

	var transit, speed float64
	for _, r := range match.Records {
		transit += r.TransitSeconds
		speed += r.AvgSpeedKmh
		if r.IsOverSpeed {
			sum.OverSpeedCount++
		}
	}
	n := float64(len(match.Records))
	sum.MeanTransit = transit / n
	sum.MeanSpeed = speed / n
	return sum
}

// PassRate is matched / startTotal as a percentage rounded to 2 decimals.
func PassRate(matched, startTotal int) float64 {
	if startTotal == 0 {
		return 0
	}
	return math.Round(float64(matched)/float64(startTotal)*100*100) / 100
}

// MonthlyCounts groups records by the calendar month of their start instant.
func MonthlyCounts(records []models.MatchedRecord) []models.MonthCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.StartInstant.Format("2006-01")]++
	}

	out := make([]models.MonthCount, 0, len(counts))
	for m, c := range counts {
		out = append(out, models.MonthCount{Month: m, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// StartHourCounts groups records by the hour of day of their start instant.
func StartHourCounts(records []models.MatchedRecord) []models.HourCount {
	counts := make(map[int]int)
	for _, r := range records {
		counts[r.StartInstant.Hour()]++
	}
	return models.HourCountsFromMap(counts)
}

// EndHourCounts groups records by the hour of day of their end instant.
func EndHourCounts(records []models.MatchedRecord) []models.HourCount {
	counts := make(map[int]int)
	for _, r := range records {
		counts[r.EndInstant.Hour()]++
	}
	return models.HourCountsFromMap(counts)
}

// TopWeekdayHours ranks weekday x start-hour buckets by count, descending,
// and keeps the first n. Records are visited chronologically; equal counts
// keep the order in which their bucket was first seen.
func TopWeekdayHours(records []models.MatchedRecord, n int) []models.BucketCount {
	ordered := make([]models.MatchedRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, chronological(ordered))

	index := make(map[string]int)
	buckets := make([]models.BucketCount, 0)
	for _, r := range ordered {
		wd := r.StartInstant.Weekday().String()
		h := r.StartInstant.Hour()
		label := fmt.Sprintf("%s %02d:00", wd, h)
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, models.BucketCount{Weekday: wd, Hour: h, Label: label})
		}
		buckets[i].Count++
	}

	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Count > buckets[j].Count })
	if len(buckets) > n {
		buckets = buckets[:n]
	}
	return buckets
}
