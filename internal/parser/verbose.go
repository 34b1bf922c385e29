package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/section-speed/backend/internal/models"
)

// VerboseMarker is the "vehicle number" label that selects verbose log lines.
const VerboseMarker = "차량번호"

// VerboseExtractor handles labelled checkpoint logs.
// Format: "[YY-MM-DD HH:MM:SS:mmm] ... 차량번호: <plate> ... 속도: <km/h> ..."
// The speed field is optional.
type VerboseExtractor struct {
	plateRegex *regexp.Regexp
	speedRegex *regexp.Regexp
}

func NewVerboseExtractor() *VerboseExtractor {
	return &VerboseExtractor{
		plateRegex: regexp.MustCompile(VerboseMarker + `\s*[:=]?\s*([0-9A-Za-z\p{Hangul}]+)`),
		speedRegex: regexp.MustCompile(`속도\s*[:=]?\s*(\d+(?:\.\d+)?)`),
	}
}

func (p *VerboseExtractor) Name() string {
	return "verbose"
}

func (p *VerboseExtractor) Mode() models.ExtractMode {
	return models.ExtractVerbose
}

func (p *VerboseExtractor) CanParse(text string) bool {
	for _, line := range sampleLines(text, 50) {
		if strings.Contains(line, VerboseMarker) && bracketTimestampRegex.MatchString(line) {
			return true
		}
	}
	return false
}

func (p *VerboseExtractor) Extract(fileName, text string, opts Options) (*models.ExtractedFile, []*models.ParseError, error) {
	if _, err := ParseCaptureStamp(fileName); err != nil {
		return nil, nil, err
	}
	loc := opts.location()

	result := models.NewExtractedFile(BaseName(fileName))
	errs, err := scanLines(result, text, opts, func(line string) (models.CrossingEvent, bool, string) {
		if !strings.Contains(line, VerboseMarker) {
			return models.CrossingEvent{}, false, ""
		}
		return p.parseLine(line, loc)
	})
	if err != nil {
		return nil, errs, fmt.Errorf("scanning %s: %w", fileName, err)
	}
	return result, errs, nil
}

func (p *VerboseExtractor) parseLine(line string, loc *time.Location) (models.CrossingEvent, bool, string) {
	// Fields are independent of each other's position
	ts, _, err := FindTimestamp(line, loc)
	if err != nil {
		return models.CrossingEvent{}, true, err.Error()
	}

	m := p.plateRegex.FindStringSubmatch(line)
	if m == nil {
		return models.CrossingEvent{}, true, "plate field missing"
	}
	plate := NormalizePlate(m[1])
	if plate == "" {
		return models.CrossingEvent{}, true, "empty plate"
	}

	ev := models.CrossingEvent{Plate: plate, Instant: ts}
	if sm := p.speedRegex.FindStringSubmatch(line); sm != nil {
		if v, err := strconv.ParseFloat(sm[1], 64); err == nil {
			ev.Speed = &v
		}
	}
	return ev, true, ""
}
