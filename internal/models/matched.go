package models

import "time"

// MatchedRecord pairs a plate's start and end crossings with the derived section metrics.
type MatchedRecord struct {
	Plate          string    `json:"plate" msgpack:"plate"`
	StartInstant   time.Time `json:"startInstant" msgpack:"startInstant"`
	StartSpeed     *float64  `json:"startSpeed,omitempty" msgpack:"startSpeed,omitempty"`
	EndInstant     time.Time `json:"endInstant" msgpack:"endInstant"`
	EndSpeed       *float64  `json:"endSpeed,omitempty" msgpack:"endSpeed,omitempty"`
	TransitSeconds float64   `json:"transitSeconds" msgpack:"transitSeconds"`
	AvgSpeedKmh    float64   `json:"avgSpeedKmh" msgpack:"avgSpeedKmh"`
	IsOverSpeed    bool      `json:"isOverSpeed" msgpack:"isOverSpeed"`
}
