package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/section-speed/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// Payload is the structured report: the summary scalars and the two tables
// a report shows, plus the hour distributions charts are drawn from.
type Payload struct {
	Title           string               `json:"title" msgpack:"title"`
	GeneratedAt     time.Time            `json:"generatedAt" msgpack:"generatedAt"`
	Summary         models.Summary       `json:"summary" msgpack:"summary"`
	Monthly         []models.MonthCount  `json:"monthly" msgpack:"monthly"`
	TopWeekdayHours []models.BucketCount `json:"topWeekdayHours" msgpack:"topWeekdayHours"`
	StartHourCounts []models.HourCount   `json:"startHourCounts" msgpack:"startHourCounts"`
	EndHourCounts   []models.HourCount   `json:"endHourCounts" msgpack:"endHourCounts"`
	SectionLengthKm float64              `json:"sectionLengthKm" msgpack:"sectionLengthKm"`
}

// DefaultTitle is the heading of generated reports.
const DefaultTitle = "구간단속 분석 보고서"

// NewPayload builds the report payload for a result.
func NewPayload(rs *models.ResultSet) Payload {
	return Payload{
		Title:           DefaultTitle,
		GeneratedAt:     rs.GeneratedAt,
		Summary:         rs.Summary,
		Monthly:         nonNil(rs.MonthlyCounts),
		TopWeekdayHours: nonNil(rs.TopWeekdayHours),
		StartHourCounts: nonNil(rs.StartHourCounts),
		EndHourCounts:   nonNil(rs.EndHourCounts),
		SectionLengthKm: rs.Config.SectionLengthKm,
	}
}

// JSON encodes the payload as indented JSON.
func (p Payload) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json payload: %w", err)
	}
	return data, nil
}

// Msgpack encodes the payload as msgpack.
func (p Payload) Msgpack() ([]byte, error) {
	data, err := msgpack.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding msgpack payload: %w", err)
	}
	return data, nil
}

// RecordsMsgpack encodes a matched record table as msgpack.
func RecordsMsgpack(records []models.MatchedRecord) ([]byte, error) {
	data, err := msgpack.Marshal(nonNil(records))
	if err != nil {
		return nil, fmt.Errorf("encoding msgpack records: %w", err)
	}
	return data, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
