// File: internal/logger/logger.go
// Author: momentics <momentics@gmail.com>
//
// Process logger built on zerolog. Hot paths never log; only rare events
// (close failures, wrong-kind frees, option failures) reach this logger.

package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	current.Store(&l)
}

// L returns the process logger.
func L() *zerolog.Logger { return current.Load() }

// Named returns a child logger tagged with a component name.
func Named(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

// ParseLevel maps a config level onto zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Configure replaces the process logger. Format "json" writes one JSON object
// per line; anything else uses the console writer.
func Configure(level, format string) *zerolog.Logger {
	return ConfigureOutput(os.Stderr, level, format)
}

// ConfigureOutput is Configure with an explicit sink.
func ConfigureOutput(out io.Writer, level, format string) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	var w io.Writer = out
	if format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    true,
			TimeFormat: time.RFC3339Nano,
		}
	}
	l := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
	current.Store(&l)
	return &l
}
