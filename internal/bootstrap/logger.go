package bootstrap

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. format "json" writes one JSON object
// per line; anything else writes human-readable console output.
func NewLogger(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
