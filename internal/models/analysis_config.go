package models

import (
	"errors"
	"fmt"
	"time"
)

// SortKey selects the display order of matched records.
type SortKey string

const (
	SortByStart SortKey = "start" // start instant ascending
	SortBySpeed SortKey = "speed" // average speed descending
)

// ExtractMode selects the line grammar used by the record extractor.
type ExtractMode string

const (
	ExtractCompact ExtractMode = "compact"
	ExtractVerbose ExtractMode = "verbose"
	ExtractAuto    ExtractMode = "auto"
)

// AnalysisConfig carries every tunable of one analysis run.
type AnalysisConfig struct {
	SpeedLimitKmh     float64     `json:"speedLimitKmh" yaml:"speed_limit_kmh" xml:"SpeedLimitKmh"`
	OverSpeedKmh      float64     `json:"overSpeedKmh" yaml:"over_speed_kmh" xml:"OverSpeedKmh"`
	SectionLengthKm   float64     `json:"sectionLengthKm" yaml:"section_length_km" xml:"SectionLengthKm"`
	MinTransitSeconds float64     `json:"minTransitSeconds" yaml:"min_transit_seconds" xml:"MinTransitSeconds"`
	MaxTransitSeconds float64     `json:"maxTransitSeconds" yaml:"max_transit_seconds" xml:"MaxTransitSeconds"`
	StartPrefix       string      `json:"startPrefix" yaml:"start_prefix" xml:"StartPrefix"`
	EndPrefix         string      `json:"endPrefix" yaml:"end_prefix" xml:"EndPrefix"`
	MergePolicy       MergePolicy `json:"mergePolicy" yaml:"merge_policy" xml:"MergePolicy"`
	SortKey           SortKey     `json:"sortKey" yaml:"sort_key" xml:"SortKey"`
	ExtractMode       ExtractMode `json:"extractMode" yaml:"extract_mode" xml:"ExtractMode"`
	TimeZone          string      `json:"timeZone" yaml:"time_zone" xml:"TimeZone"`
	MaxErrorsPerFile  int         `json:"maxErrorsPerFile" yaml:"max_errors_per_file" xml:"MaxErrorsPerFile"`

	location *time.Location
}

// DefaultAnalysisConfig returns the settings used when nothing is configured.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		SpeedLimitKmh:     50,
		OverSpeedKmh:      61,
		SectionLengthKm:   0.8,
		MinTransitSeconds: 0,
		MaxTransitSeconds: 3600,
		StartPrefix:       "START_",
		EndPrefix:         "END_",
		MergePolicy:       MergeEarliestWins,
		SortKey:           SortByStart,
		ExtractMode:       ExtractAuto,
		TimeZone:          "UTC",
		MaxErrorsPerFile:  100,
	}
}

// Validate checks the configuration and resolves the time zone.
func (c *AnalysisConfig) Validate() error {
	var errs []error
	if c.SectionLengthKm <= 0 {
		errs = append(errs, fmt.Errorf("section length must be positive, got %v", c.SectionLengthKm))
	}
	if c.OverSpeedKmh <= 0 {
		errs = append(errs, fmt.Errorf("over-speed threshold must be positive, got %v", c.OverSpeedKmh))
	}
	if c.MaxTransitSeconds <= c.MinTransitSeconds {
		errs = append(errs, fmt.Errorf("transit window [%v, %v] is empty", c.MinTransitSeconds, c.MaxTransitSeconds))
	}
	if c.StartPrefix == "" || c.EndPrefix == "" {
		errs = append(errs, errors.New("checkpoint prefixes must not be empty"))
	} else if c.StartPrefix == c.EndPrefix {
		errs = append(errs, fmt.Errorf("checkpoint prefixes must differ, both are %q", c.StartPrefix))
	}
	if !c.MergePolicy.Valid() {
		errs = append(errs, fmt.Errorf("unknown merge policy %q", c.MergePolicy))
	}
	if c.SortKey != SortByStart && c.SortKey != SortBySpeed {
		errs = append(errs, fmt.Errorf("unknown sort key %q", c.SortKey))
	}
	switch c.ExtractMode {
	case ExtractCompact, ExtractVerbose, ExtractAuto:
	default:
		errs = append(errs, fmt.Errorf("unknown extract mode %q", c.ExtractMode))
	}

	tz := c.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("loading time zone %q: %w", tz, err))
	} else {
		c.location = loc
	}

	return errors.Join(errs...)
}

// Location returns the time zone log wall-clock times are interpreted in.
func (c AnalysisConfig) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.UTC
}
