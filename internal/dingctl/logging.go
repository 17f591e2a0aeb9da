package dingctl

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

// SetLogLevel accepts debug|info|warn|error; anything else means info.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	log = log.Level(lvl)
}

// SetLogOutput redirects diagnostics, mostly for tests.
func SetLogOutput(w io.Writer) {
	log = log.Output(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339})
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
