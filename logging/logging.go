// Package logging provides the structured loggers used across the
// module. Loggers write human-readable console output by default; the
// level is controlled with the SOCKIT_LOG_LEVEL environment variable
// (trace, debug, info, warn, error) and defaults to info.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger for a component.
func New(component string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return NewWithWriter(component, output)
}

// NewWithWriter returns a logger for a component writing to w. Tests
// pass a buffer here to capture structured output.
func NewWithWriter(component string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(LevelFromEnv()).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// LevelFromEnv resolves SOCKIT_LOG_LEVEL to a zerolog level, defaulting
// to info.
func LevelFromEnv() zerolog.Level {
	switch strings.ToLower(os.Getenv("SOCKIT_LOG_LEVEL")) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
