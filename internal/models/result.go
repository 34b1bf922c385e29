package models

import "time"

// Summary holds the scalar aggregates of one analysis run.
type Summary struct {
	StartCount     int         `json:"startCount" msgpack:"startCount"`
	EndCount       int         `json:"endCount" msgpack:"endCount"`
	MatchedCount   int         `json:"matchedCount" msgpack:"matchedCount"`
	StartOnlyCount int         `json:"startOnlyCount" msgpack:"startOnlyCount"`
	EndOnlyCount   int         `json:"endOnlyCount" msgpack:"endOnlyCount"`
	RejectedCount  int         `json:"rejectedCount" msgpack:"rejectedCount"` // joined but outside the plausibility window
	OverSpeedCount int         `json:"overSpeedCount" msgpack:"overSpeedCount"`
	PassRate       float64     `json:"passRate" msgpack:"passRate"` // percent, 2 decimals
	MeanTransit    float64     `json:"meanTransitSeconds" msgpack:"meanTransitSeconds"`
	MeanSpeed      float64     `json:"meanSpeedKmh" msgpack:"meanSpeedKmh"`
	SpeedLimitKmh  float64     `json:"speedLimitKmh" msgpack:"speedLimitKmh"`
	OverSpeedKmh   float64     `json:"overSpeedKmh" msgpack:"overSpeedKmh"`
	MergePolicy    MergePolicy `json:"mergePolicy" msgpack:"mergePolicy"`
}

// MonthCount is the number of matched vehicles in one calendar month ("2006-01").
type MonthCount struct {
	Month string `json:"month" msgpack:"month"`
	Count int    `json:"count" msgpack:"count"`
}

// HourCount is the number of vehicles in one hour of day.
type HourCount struct {
	Hour  int `json:"hour" msgpack:"hour"`
	Count int `json:"count" msgpack:"count"`
}

// BucketCount is the number of vehicles in one weekday x hour bucket.
type BucketCount struct {
	Weekday string `json:"weekday" msgpack:"weekday"`
	Hour    int    `json:"hour" msgpack:"hour"`
	Label   string `json:"label" msgpack:"label"`
	Count   int    `json:"count" msgpack:"count"`
}

// FileDiagnostic reports what happened to one source file during extraction.
type FileDiagnostic struct {
	Side     Side         `json:"side"`
	FileName string       `json:"fileName"`
	Encoding string       `json:"encoding,omitempty"`
	Events   int          `json:"events"`
	Skipped  bool         `json:"skipped"`
	Reason   string       `json:"reason,omitempty"`
	Errors   []ParseError `json:"errors,omitempty"`
}

// ResultSet is the complete output of one analysis run.
type ResultSet struct {
	Records         []MatchedRecord  `json:"records"`
	Summary         Summary          `json:"summary"`
	MonthlyCounts   []MonthCount     `json:"monthlyCounts"`
	StartHourCounts []HourCount      `json:"startHourCounts"`
	EndHourCounts   []HourCount      `json:"endHourCounts"`
	TopWeekdayHours []BucketCount    `json:"topWeekdayHours"`
	StartVolume     []HourCount      `json:"startVolume"` // distinct plates per capture hour
	EndVolume       []HourCount      `json:"endVolume"`
	Config          AnalysisConfig   `json:"config"`
	Diagnostics     []FileDiagnostic `json:"diagnostics"`
	GeneratedAt     time.Time        `json:"generatedAt"`
}
