package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer. Nil disables request logs.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("DINGD_HTTP_LOG_LEVEL"))

// SetDefaultLogLevel sets the request log level used without overrides.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

func logStart(r *http.Request, lvl LogLevel, msg, appKey string) {
	if zlog == nil || lvl < LevelDebug {
		return
	}
	z := zlog.Debug().Str("path", r.URL.Path).Str("app", appKey)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg(msg)
}

func logEnd(r *http.Request, lvl LogLevel, msg string, status int, dur time.Duration, err error) {
	if zlog == nil {
		return
	}
	var z *zerolog.Event
	switch {
	case err != nil && status >= 500 && lvl >= LevelError:
		z = zlog.Error()
	case err != nil && lvl >= LevelInfo:
		z = zlog.Warn()
	case lvl >= LevelInfo:
		z = zlog.Info()
	default:
		return
	}
	z = z.Str("path", r.URL.Path).Int("status", status).Dur("dur", dur)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Err(err).Msg(msg)
}
