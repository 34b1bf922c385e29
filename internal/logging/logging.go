// Package logging configures the global zerolog logger shared by the binaries.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures log.Logger from the environment. SECTION_LOG_FORMAT=JSON
// keeps structured output; SECTION_DEBUG=YES forces debug level and otherwise
// level names the minimum level ("info" when empty or unknown).
func Setup(out io.Writer, level string) {
	if out == nil {
		out = os.Stdout
	}

	if os.Getenv("SECTION_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}

	log.Logger = log.Logger.Level(ParseLevel(level))
	if os.Getenv("SECTION_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
