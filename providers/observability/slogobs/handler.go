package slogobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
)

// Handler renders records in the compact or pretty formats. JSON output
// uses slog.JSONHandler directly.
type Handler struct {
	format Format
	level  slog.Leveler
	colors bool

	mu     *sync.Mutex
	output io.Writer
	attrs  []slog.Attr
	prefix string
}

// NewHandler builds a handler for format. Colors are enabled automatically
// when output is a terminal.
func NewHandler(output io.Writer, format Format, level slog.Leveler, colors bool) slog.Handler {
	if output == nil {
		output = os.Stderr
	}
	if format == FormatJSON {
		return slog.NewJSONHandler(output, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevel,
		})
	}
	if file, ok := output.(*os.File); ok && !colors {
		colors = isTerminal(file)
	}
	return &Handler{format: format, level: level, colors: colors, mu: &sync.Mutex{}, output: output}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]any, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[h.prefix+attr.Key] = attr.Value.Resolve().Any()
		return true
	})

	var builder strings.Builder
	builder.WriteString(record.Time.Format("2006-01-02 15:04:05"))
	builder.WriteByte(' ')
	level := levelName(record.Level)
	if h.colors {
		builder.WriteString(colorForLevel(record.Level) + fmt.Sprintf("%5s", level) + colorReset)
	} else {
		builder.WriteString(fmt.Sprintf("%5s", level))
	}
	builder.WriteByte(' ')
	builder.WriteString(record.Message)

	if h.format == FormatPretty {
		keys := slices.Sorted(maps.Keys(attrs))
		for index, key := range keys {
			branch := "├─"
			if index == len(keys)-1 {
				branch = "└─"
			}
			fmt.Fprintf(&builder, "\n    %s %s: %v", branch, key, attrs[key])
		}
	} else if len(attrs) > 0 {
		// encoding/json sorts map keys.
		encoded, err := json.Marshal(attrs)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", attrs))
		}
		builder.WriteByte(' ')
		builder.Write(encoded)
	}
	builder.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, builder.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + attr.Key, Value: attr.Value})
	}
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func replaceLevel(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.LevelKey {
		if level, ok := attr.Value.Any().(slog.Level); ok {
			attr.Value = slog.StringValue(levelName(level))
		}
	}
	return attr
}

func levelName(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func colorForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return colorGray
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
