package httpapi

import (
	"log"
	"net/http"
	"os"

	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
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
var defaultLogLevel = parseLevel(os.Getenv("TAROTD_LOG_LEVEL"))

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

// logEnd emits the per-request completion line at info level.
func logEnd(r *http.Request, lvl LogLevel, status int, option string, err error) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		ev := zlog.Info().Str("path", r.URL.Path).Str("option", option).Int("status", status)
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("reading end")
		return
	}
	if err != nil {
		log.Printf("reading end path=%s option=%s status=%d err=%v", r.URL.Path, option, status, err)
		return
	}
	log.Printf("reading end path=%s option=%s status=%d", r.URL.Path, option, status)
}
