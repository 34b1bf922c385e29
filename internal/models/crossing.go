// Package models contains domain types for the section speed analyzer.
package models

import "time"

// Side identifies one of the two checkpoints bounding the monitored section.
type Side string

const (
	SideStart Side = "start"
	SideEnd   Side = "end"
)

// CrossingEvent is a single vehicle observation extracted from a checkpoint log.
type CrossingEvent struct {
	Plate      string    `json:"plate"`
	Instant    time.Time `json:"instant"`
	Speed      *float64  `json:"speed,omitempty"`      // observed spot speed, verbose logs only
	SourceHour *int      `json:"sourceHour,omitempty"` // capture hour tag
	SourceFile string    `json:"sourceFile,omitempty"`
}

// CaptureHour returns the hour tag of the event, falling back to the instant's hour.
func (e CrossingEvent) CaptureHour() int {
	if e.SourceHour != nil {
		return *e.SourceHour
	}
	return e.Instant.Hour()
}

// ExtractedFile is the per-file extraction result: plate -> latest event in file order.
type ExtractedFile struct {
	FileName string                   `json:"fileName"`
	Encoding string                   `json:"encoding"`
	Events   map[string]CrossingEvent `json:"events"`
	Lines    int                      `json:"lines"`
}

// NewExtractedFile creates an empty ExtractedFile.
func NewExtractedFile(fileName string) *ExtractedFile {
	return &ExtractedFile{
		FileName: fileName,
		Events:   make(map[string]CrossingEvent),
	}
}
