// Package telemetry sets up logging and tracing.
package telemetry

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// LogOptions configures NewLogger.
type LogOptions struct {
	Level     string // debug, info, warn, error
	Format    string // text, json, logfmt
	Debug     bool   // forces debug level
	Timestamp bool
}

// NewLogger returns a logger writing to w. Values that look like secrets
// are masked before they reach w.
func NewLogger(w io.Writer, opts LogOptions) *log.Logger {
	level := ParseLogLevel(opts.Level)
	if opts.Debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(&redactWriter{w: w}, log.Options{
		Level:           level,
		Formatter:       ParseLogFormatter(opts.Format),
		ReportTimestamp: opts.Timestamp,
		Prefix:          "todochat",
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// ParseLogLevel parses a level name; unknown names mean info.
func ParseLogLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ParseLogFormatter parses a formatter name; unknown names mean text.
func ParseLogFormatter(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
