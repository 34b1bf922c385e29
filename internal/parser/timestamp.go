package parser

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	// ErrNoTimestamp means the text has no bracketed date-time with a millisecond group.
	ErrNoTimestamp = errors.New("no bracketed timestamp with milliseconds")
	// ErrInvalidTimestamp means the digits do not form a valid calendar date-time.
	ErrInvalidTimestamp = errors.New("invalid calendar date-time")
)

// bracketTimestampRegex anchors "[YY-MM-DD HH:MM:SS:mmm" (the millisecond
// separator may also be '.').
var bracketTimestampRegex = regexp.MustCompile(`\[(\d{2}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})[:.](\d{3})`)

// FindTimestamp locates the first bracketed timestamp in line and parses it.
// It returns the instant and the byte offset just past the match.
func FindTimestamp(line string, loc *time.Location) (time.Time, int, error) {
	m := bracketTimestampRegex.FindStringSubmatchIndex(line)
	if m == nil {
		return time.Time{}, -1, ErrNoTimestamp
	}
	ts, err := ParseTimestamp(line[m[2]:m[3]], line[m[4]:m[5]], loc)
	if err != nil {
		return time.Time{}, -1, err
	}
	return ts, m[1], nil
}

// ParseTimestamp builds an instant from "YY-MM-DD HH:MM:SS" and a 3-digit
// millisecond string, assuming the 21st century.
func ParseTimestamp(dateTime, millis string, loc *time.Location) (time.Time, error) {
	if len(dateTime) != 17 || len(millis) != 3 {
		return time.Time{}, ErrNoTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}

	// Manual digit parsing, no allocations
	year := parseInt2(dateTime[0:2])
	month := parseInt2(dateTime[3:5])
	day := parseInt2(dateTime[6:8])
	hour := parseInt2(dateTime[9:11])
	min := parseInt2(dateTime[12:14])
	sec := parseInt2(dateTime[15:17])
	ms := parseIntN(millis, 3)

	if year < 0 || month < 1 || month > 12 || day < 1 || day > 31 ||
		hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 || ms < 0 {
		return time.Time{}, fmt.Errorf("%w: %s:%s", ErrInvalidTimestamp, dateTime, millis)
	}

	ts := time.Date(2000+year, time.Month(month), day, hour, min, sec, ms*int(time.Millisecond), loc)
	// time.Date normalises overflow (Feb 30 -> Mar 2); reject instead
	if ts.Day() != day || int(ts.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: %s:%s", ErrInvalidTimestamp, dateTime, millis)
	}
	return ts, nil
}

// parseInt2 parses a 2-digit decimal string. Returns -1 on error.
func parseInt2(s string) int {
	if len(s) != 2 {
		return -1
	}
	d1, d2 := s[0]-'0', s[1]-'0'
	if d1 > 9 || d2 > 9 {
		return -1
	}
	return int(d1)*10 + int(d2)
}

// parseIntN parses an n-digit decimal string. Returns -1 on error.
func parseIntN(s string, n int) int {
	if len(s) < n {
		return -1
	}
	result := 0
	for i := 0; i < n; i++ {
		d := s[i] - '0'
		if d > 9 {
			return -1
		}
		result = result*10 + int(d)
	}
	return result
}
