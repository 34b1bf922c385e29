package parser

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// captureStampRegex finds the 8-digit date and 2-digit hour in a file name.
var captureStampRegex = regexp.MustCompile(`(\d{8})(\d{2})`)

// CaptureStamp is the capture date and hour encoded in a source file name.
type CaptureStamp struct {
	Date time.Time
	Hour int
}

// ParseCaptureStamp extracts the YYYYMMDDHH stamp from a file name.
func ParseCaptureStamp(fileName string) (CaptureStamp, error) {
	base := BaseName(fileName)
	m := captureStampRegex.FindStringSubmatch(base)
	if m == nil {
		return CaptureStamp{}, fmt.Errorf("%w: %s", ErrBadFileName, base)
	}

	date, err := time.Parse("20060102", m[1])
	if err != nil {
		return CaptureStamp{}, fmt.Errorf("%w: %s: %v", ErrBadFileName, base, err)
	}
	hour := parseInt2(m[2])
	if hour < 0 || hour > 23 {
		return CaptureStamp{}, fmt.Errorf("%w: %s: hour %s out of range", ErrBadFileName, base, m[2])
	}

	return CaptureStamp{Date: date, Hour: hour}, nil
}

// BaseName returns the last element of a slash or backslash separated path.
// Zip members always use '/', uploads from Windows browsers may carry '\'.
func BaseName(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		name = name[i+1:]
	}
	return path.Base(name)
}

// MatchesSource reports whether a file name belongs to a checkpoint: the base
// name starts with prefix and ends with ".txt" (any case).
func MatchesSource(fileName, prefix string) bool {
	base := BaseName(fileName)
	return strings.HasPrefix(base, prefix) && strings.HasSuffix(strings.ToLower(base), ".txt")
}
