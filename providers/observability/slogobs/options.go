package slogobs

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects how log records are rendered.
type Format string

const (
	// FormatCompact renders one line per record with JSON attributes:
	//	2026-01-02 10:40:35 DEBUG superstep started {"graph.step":1}
	FormatCompact Format = "compact"

	// FormatPretty renders attributes on indented lines below the message.
	FormatPretty Format = "pretty"

	// FormatJSON renders one JSON object per record.
	FormatJSON Format = "json"
)

// LevelTrace sits below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

// ParseFormat maps a name to a Format; unknown names yield FormatCompact.
func ParseFormat(name string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatPretty:
		return FormatPretty
	case FormatJSON:
		return FormatJSON
	default:
		return FormatCompact
	}
}

// ParseLevel maps TRACE, DEBUG, INFO, WARN(ING) and ERROR, in any case, to a
// level. ok is false for unknown names, which map to INFO.
func ParseLevel(name string) (level slog.Level, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LevelTrace, true
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// envValue returns the first non-empty variable among names.
func envValue(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

// Option configures an Observer.
type Option func(*config)

type config struct {
	format Format
	level  slog.Level
	output io.Writer
	colors bool
	logger *slog.Logger
}

func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

func WithOutput(output io.Writer) Option {
	return func(c *config) {
		c.output = output
	}
}

// WithColors forces ANSI colors on or off for compact and pretty output.
func WithColors(enabled bool) Option {
	return func(c *config) {
		c.colors = enabled
	}
}

// WithLogger uses logger as is; format, level, output and colors are
// ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// defaultConfig reads AIFLOW_LOG_FORMAT/LOG_FORMAT and
// AIFLOW_LOG_LEVEL/LOG_LEVEL.
func defaultConfig() *config {
	level, _ := ParseLevel(envValue("AIFLOW_LOG_LEVEL", "LOG_LEVEL"))
	return &config{
		format: ParseFormat(envValue("AIFLOW_LOG_FORMAT", "LOG_FORMAT")),
		level:  level,
		output: os.Stderr,
	}
}
