package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leofalp/aiflow/providers/observability"
)

// Observer implements observability.Provider on log/slog. Spans become
// debug records, counters are summed in memory and errors are logged.
type Observer struct {
	logger *slog.Logger

	mu       sync.Mutex
	counters map[string]int64
}

var _ observability.Provider = (*Observer)(nil)

// New builds an Observer. Without options the format and level come from
// AIFLOW_LOG_FORMAT and AIFLOW_LOG_LEVEL and records go to stderr.
//
//	observer := slogobs.New(slogobs.WithFormat(slogobs.FormatPretty), slogobs.WithLevel(slog.LevelDebug))
func New(opts ...Option) *Observer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(NewHandler(cfg.output, cfg.format, cfg.level, cfg.colors))
	}
	return &Observer{logger: logger, counters: make(map[string]int64)}
}

// Logger exposes the underlying slog logger.
func (o *Observer) Logger() *slog.Logger {
	return o.logger
}

// CounterValue returns the running total of a counter.
func (o *Observer) CounterValue(name string) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counters[name]
}

func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	o.logger.LogAttrs(ctx, slog.LevelDebug, "span started", append(toSlog(attrs), slog.String("span", name))...)
	return ctx, &span{name: name, start: time.Now(), logger: o.logger, attrs: attrs}
}

type span struct {
	name   string
	start  time.Time
	logger *slog.Logger

	mu     sync.Mutex
	attrs  []observability.Attribute
	status observability.StatusCode
}

func (s *span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs := append(toSlog(s.attrs),
		slog.String("span", s.name),
		slog.String(observability.AttrStatus, s.status.String()),
		slog.Duration(observability.AttrDuration, time.Since(s.start)),
	)
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span ended", attrs...)
}

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *span) SetStatus(code observability.StatusCode, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span error",
		slog.String("span", s.name),
		slog.String(observability.AttrError, err.Error()),
	)
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	s.logger.LogAttrs(context.Background(), LevelTrace, name, append(toSlog(attrs), slog.String("span", s.name))...)
}

func (o *Observer) Counter(name string) observability.Counter {
	return counter{observer: o, name: name}
}

func (o *Observer) Histogram(name string) observability.Histogram {
	return histogram{logger: o.logger, name: name}
}

type counter struct {
	observer *Observer
	name     string
}

func (c counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.observer.mu.Lock()
	c.observer.counters[c.name] += value
	total := c.observer.counters[c.name]
	c.observer.mu.Unlock()

	c.observer.logger.LogAttrs(ctx, LevelTrace, "counter",
		append(toSlog(attrs), slog.String("metric", c.name), slog.Int64("value", total), slog.Int64("delta", value))...)
}

type histogram struct {
	logger *slog.Logger
	name   string
}

func (h histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.logger.LogAttrs(ctx, LevelTrace, "histogram",
		append(toSlog(attrs), slog.String("metric", h.name), slog.Float64("value", value))...)
}

func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, LevelTrace, msg, toSlog(attrs)...)
}

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelDebug, msg, toSlog(attrs)...)
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelInfo, msg, toSlog(attrs)...)
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelWarn, msg, toSlog(attrs)...)
}

func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.LogAttrs(ctx, slog.LevelError, msg, toSlog(attrs)...)
}

func toSlog(attrs []observability.Attribute) []slog.Attr {
	converted := make([]slog.Attr, 0, len(attrs)+3)
	for _, attr := range attrs {
		converted = append(converted, slog.Any(attr.Key, attr.Value))
	}
	return converted
}
