// Package sysutil holds process-level helpers: log setup and environment
// value parsing.
package sysutil

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level from a LOG_LEVEL value
// (debug, info, warn/warning, error, fatal, panic; case-insensitive).
// Empty or unknown values mean info.
func SetLogLevel(lvl string) {
	zerolog.SetGlobalLevel(parseLevel(lvl))
}

func parseLevel(lvl string) zerolog.Level {
	s := strings.ToLower(strings.TrimSpace(lvl))
	if s == "warning" {
		s = "warn"
	}
	switch l, err := zerolog.ParseLevel(s); {
	case err != nil, s == "", l == zerolog.NoLevel, l == zerolog.Disabled, l == zerolog.TraceLevel:
		return zerolog.InfoLevel
	default:
		return l
	}
}

// NewLogger returns the process logger writing to w: JSON lines, or a
// human-readable console when pretty is set. Every entry carries the
// service name and a timestamp.
func NewLogger(w io.Writer, service string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}

// IsTruthy reports whether an environment value means "on":
// 1, true, yes, y or on (case-insensitive).
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
