// Package report renders analysis results for download: a spreadsheet-style
// CSV of matched records, a structured payload (JSON or msgpack) and an HTML
// document handed to an external PDF renderer.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/section-speed/backend/internal/models"
)

// TimeLayout is how instants are written in exports.
const TimeLayout = "2006-01-02 15:04:05.000"

// utf8BOM lets spreadsheet applications detect the encoding of Hangul plates.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RecordRow is one CSV line of the matched record table.
type RecordRow struct {
	Plate          string `csv:"차량번호"`
	StartInstant   string `csv:"시점 통과시각"`
	StartSpeed     string `csv:"시점 속도"`
	EndInstant     string `csv:"종점 통과시각"`
	EndSpeed       string `csv:"종점 속도"`
	TransitSeconds string `csv:"구간 통과시간"`
	AvgSpeedKmh    string `csv:"평균 구간속도"`
	OverSpeed      string `csv:"과속 여부"`
}

// NewRecordRow formats a matched record for CSV output.
func NewRecordRow(r models.MatchedRecord) RecordRow {
	over := "N"
	if r.IsOverSpeed {
		over = "Y"
	}
	return RecordRow{
		Plate:          r.Plate,
		StartInstant:   r.StartInstant.Format(TimeLayout),
		StartSpeed:     formatOptional(r.StartSpeed),
		EndInstant:     r.EndInstant.Format(TimeLayout),
		EndSpeed:       formatOptional(r.EndSpeed),
		TransitSeconds: strconv.FormatFloat(r.TransitSeconds, 'f', 3, 64),
		AvgSpeedKmh:    strconv.FormatFloat(r.AvgSpeedKmh, 'f', 2, 64),
		OverSpeed:      over,
	}
}

// WriteCSV writes the records, header first. An empty record set still
// produces the header line.
func WriteCSV(w io.Writer, records []models.MatchedRecord) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	rows := make([]RecordRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, NewRecordRow(r))
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// CSV returns the records as CSV bytes.
func CSV(records []models.MatchedRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
