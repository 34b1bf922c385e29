package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/section-speed/backend/internal/models"
)

// CompactExtractor handles single-token checkpoint logs.
// Format: "[YY-MM-DD HH:MM:SS:mmm] ... Plate=<value> ..."
// Every event is tagged with the capture hour from the file name.
type CompactExtractor struct {
	plateRegex *regexp.Regexp
}

// compactPlateToken gates lines considered by the compact grammar.
const compactPlateToken = "Plate="

func NewCompactExtractor() *CompactExtractor {
	return &CompactExtractor{
		plateRegex: regexp.MustCompile(`Plate=([0-9A-Za-z\p{Hangul}]+)`),
	}
}

func (p *CompactExtractor) Name() string {
	return "compact"
}

func (p *CompactExtractor) Mode() models.ExtractMode {
	return models.ExtractCompact
}

func (p *CompactExtractor) CanParse(text string) bool {
	for _, line := range sampleLines(text, 50) {
		if !strings.Contains(line, compactPlateToken) {
			continue
		}
		if bracketTimestampRegex.MatchString(line) && p.plateRegex.MatchString(line) {
			return true
		}
	}
	return false
}

func (p *CompactExtractor) Extract(fileName, text string, opts Options) (*models.ExtractedFile, []*models.ParseError, error) {
	stamp, err := ParseCaptureStamp(fileName)
	if err != nil {
		return nil, nil, err
	}
	hour := stamp.Hour
	loc := opts.location()

	result := models.NewExtractedFile(BaseName(fileName))
	errs, err := scanLines(result, text, opts, func(line string) (models.CrossingEvent, bool, string) {
		if !strings.Contains(line, compactPlateToken) {
			return models.CrossingEvent{}, false, ""
		}
		return p.parseLine(line, hour, loc)
	})
	if err != nil {
		return nil, errs, fmt.Errorf("scanning %s: %w", fileName, err)
	}
	return result, errs, nil
}

func (p *CompactExtractor) parseLine(line string, hour int, loc *time.Location) (models.CrossingEvent, bool, string) {
	ts, end, err := FindTimestamp(line, loc)
	if err != nil {
		return models.CrossingEvent{}, true, err.Error()
	}

	// The plate token must follow the timestamp
	m := p.plateRegex.FindStringSubmatch(line[end:])
	if m == nil {
		return models.CrossingEvent{}, true, "plate token missing after timestamp"
	}
	plate := NormalizePlate(m[1])
	if plate == "" {
		return models.CrossingEvent{}, true, "empty plate"
	}

	h := hour
	return models.CrossingEvent{
		Plate:      plate,
		Instant:    ts,
		SourceHour: &h,
	}, true, ""
}
