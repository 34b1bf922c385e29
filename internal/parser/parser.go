package parser

import (
	"bufio"
	"errors"
	"strings"
	"time"

	"github.com/section-speed/backend/internal/models"
	"golang.org/x/text/unicode/norm"
)

// ErrBadFileName is returned when a source file name does not carry the
// YYYYMMDDHH capture stamp; such files are skipped entirely.
var ErrBadFileName = errors.New("file name does not embed a YYYYMMDDHH capture stamp")

// Options tunes a single extraction call.
type Options struct {
	// Location is the time zone the log wall-clock times are written in.
	Location *time.Location
	// MaxErrors caps the number of line diagnostics kept per file. Zero keeps none.
	MaxErrors int
	// Intern deduplicates plate strings across files. Optional.
	Intern *StringIntern
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Extractor turns the decoded text of one checkpoint log file into crossing events.
type Extractor interface {
	// Name returns the unique name of the extractor.
	Name() string
	// Mode returns the grammar this extractor implements.
	Mode() models.ExtractMode
	// CanParse returns true if the sampled text looks like this grammar.
	CanParse(text string) bool
	// Extract parses the whole file. Later occurrences of a plate overwrite earlier ones.
	Extract(fileName, text string, opts Options) (*models.ExtractedFile, []*models.ParseError, error)
}

// maxScannerBuffer bounds a single log line.
const maxScannerBuffer = 1024 * 1024

// lineHandler processes one non-empty line; it returns ok=false with a reason
// for lines that were selected but could not be turned into an event.
type lineHandler func(line string) (ev models.CrossingEvent, selected bool, reason string)

// scanLines runs handle over every line of text, applying last-write-wins per plate.
func scanLines(result *models.ExtractedFile, text string, opts Options, handle lineHandler) ([]*models.ParseError, error) {
	errs := make([]*models.ParseError, 0)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerBuffer)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		ev, selected, reason := handle(line)
		if !selected {
			continue
		}
		if reason != "" {
			if len(errs) < opts.MaxErrors {
				errs = append(errs, &models.ParseError{Line: lineNum, Content: line, Reason: reason})
			}
			continue
		}

		if opts.Intern != nil {
			ev.Plate = opts.Intern.Intern(ev.Plate)
		}
		ev.SourceFile = result.FileName
		result.Events[ev.Plate] = ev
	}
	result.Lines = lineNum

	if err := scanner.Err(); err != nil {
		return errs, err
	}
	return errs, nil
}

// NormalizePlate trims a raw plate value and composes Hangul to NFC so the
// same plate written with decomposed jamo joins correctly.
func NormalizePlate(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}

// sampleLines returns up to n non-empty lines from the start of text.
func sampleLines(text string, n int) []string {
	out := make([]string, 0, n)
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerBuffer)
	for scanner.Scan() && len(out) < n {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
