package models

import "sort"

// MergePolicy selects how repeated observations of one plate are resolved.
type MergePolicy string

const (
	// MergeEarliestWins keeps the earliest instant seen across all files.
	MergeEarliestWins MergePolicy = "earliest-wins"
	// MergeLastOverwrite lets every new observation replace the held one.
	MergeLastOverwrite MergePolicy = "last-overwrite"
)

// Valid reports whether p is a known policy.
func (p MergePolicy) Valid() bool {
	return p == MergeEarliestWins || p == MergeLastOverwrite
}

// CheckpointLog holds at most one crossing event per plate for one checkpoint side.
type CheckpointLog struct {
	Side         Side                     `json:"side"`
	Policy       MergePolicy              `json:"policy"`
	Events       map[string]CrossingEvent `json:"events"`
	Observations int                      `json:"observations"` // raw events folded in, before dedup
	Files        []string                 `json:"files"`
}

// NewCheckpointLog creates an empty log for the given side and policy.
func NewCheckpointLog(side Side, policy MergePolicy) *CheckpointLog {
	return &CheckpointLog{
		Side:   side,
		Policy: policy,
		Events: make(map[string]CrossingEvent),
		Files:  make([]string, 0),
	}
}

// Len returns the number of distinct plates.
func (l *CheckpointLog) Len() int {
	return len(l.Events)
}

// Plates returns the plates in ascending order.
func (l *CheckpointLog) Plates() []string {
	plates := make([]string, 0, len(l.Events))
	for p := range l.Events {
		plates = append(plates, p)
	}
	sort.Strings(plates)
	return plates
}

// CaptureHourCounts returns the number of distinct plates per capture hour.
func (l *CheckpointLog) CaptureHourCounts() []HourCount {
	counts := make(map[int]int)
	for _, ev := range l.Events {
		counts[ev.CaptureHour()]++
	}
	return HourCountsFromMap(counts)
}

// HourCountsFromMap converts an hour -> count map to a slice sorted by hour.
func HourCountsFromMap(counts map[int]int) []HourCount {
	out := make([]HourCount, 0, len(counts))
	for h, c := range counts {
		out = append(out, HourCount{Hour: h, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}
