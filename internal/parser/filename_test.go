package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaptureStamp(t *testing.T) {
	t.Run("valid stamp", func(t *testing.T) {
		stamp, err := ParseCaptureStamp("logs/START_2024031508.txt")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), stamp.Date)
		assert.Equal(t, 8, stamp.Hour)
	})

	t.Run("extra digits use the first ten", func(t *testing.T) {
		stamp, err := ParseCaptureStamp("END_202403152359.txt")
		require.NoError(t, err)
		assert.Equal(t, 23, stamp.Hour)
	})

	invalid := []string{
		"START_log.txt",
		"START_20240315.txt",
		"START_2024031524.txt",
		"START_2024133108.txt",
		"START_2024023008.txt",
	}
	for _, name := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCaptureStamp(name)
			assert.ErrorIs(t, err, ErrBadFileName)
		})
	}
}

func TestMatchesSource(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   bool
	}{
		{"START_2024031508.txt", "START_", true},
		{"START_2024031508.TXT", "START_", true},
		{"archive/START_2024031508.txt", "START_", true},
		{`C:\logs\START_2024031508.txt`, "START_", true},
		{"END_2024031508.txt", "START_", false},
		{"START_2024031508.log", "START_", false},
		{"start_2024031508.txt", "START_", false},
		{"xSTART_2024031508.txt", "START_", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesSource(tt.name, tt.prefix))
		})
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a.txt", BaseName("a.txt"))
	assert.Equal(t, "a.txt", BaseName("dir/sub/a.txt"))
	assert.Equal(t, "a.txt", BaseName(`dir\sub\a.txt`))
}
