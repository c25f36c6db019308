package zapobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leofalp/aiflow/providers/observability"
)

// TraceLevel sits one step below zap's debug level.
const TraceLevel = zapcore.DebugLevel - 1

// Observer implements observability.Provider on a zap logger.
type Observer struct {
	logger *zap.Logger

	mu       sync.Mutex
	counters map[string]int64
}

var _ observability.Provider = (*Observer)(nil)

// New wraps logger. A nil logger is replaced by zap.NewProduction, falling
// back to a no-op logger when that fails.
func New(logger *zap.Logger) *Observer {
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
	}
	return &Observer{logger: logger, counters: make(map[string]int64)}
}

// Logger exposes the wrapped logger.
func (o *Observer) Logger() *zap.Logger {
	return o.logger
}

// Sync flushes buffered entries.
func (o *Observer) Sync() error {
	return o.logger.Sync()
}

// CounterValue returns the running total of a counter.
func (o *Observer) CounterValue(name string) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counters[name]
}

func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	spanLogger := o.logger.With(zap.String("span", name))
	spanLogger.Debug("span started", fields(attrs)...)
	return ctx, &span{logger: spanLogger, start: time.Now()}
}

type span struct {
	logger *zap.Logger
	start  time.Time

	mu          sync.Mutex
	attrs       []observability.Attribute
	status      observability.StatusCode
	description string
}

func (s *span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	spanFields := append(fields(s.attrs),
		zap.String(observability.AttrStatus, s.status.String()),
		zap.Duration(observability.AttrDuration, time.Since(s.start)),
	)
	if s.description != "" {
		spanFields = append(spanFields, zap.String("status.description", s.description))
	}
	s.logger.Debug("span ended", spanFields...)
}

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
	s.description = description
}

func (s *span) RecordError(err error) {
	if err != nil {
		s.logger.Debug("span error", zap.Error(err))
	}
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	if ce := s.logger.Check(TraceLevel, name); ce != nil {
		ce.Write(fields(attrs)...)
	}
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

func (c counter) Add(_ context.Context, value int64, attrs ...observability.Attribute) {
	c.observer.mu.Lock()
	c.observer.counters[c.name] += value
	total := c.observer.counters[c.name]
	c.observer.mu.Unlock()

	if ce := c.observer.logger.Check(TraceLevel, "counter"); ce != nil {
		ce.Write(append(fields(attrs), zap.String("metric", c.name), zap.Int64("value", total), zap.Int64("delta", value))...)
	}
}

type histogram struct {
	logger *zap.Logger
	name   string
}

func (h histogram) Record(_ context.Context, value float64, attrs ...observability.Attribute) {
	if ce := h.logger.Check(TraceLevel, "histogram"); ce != nil {
		ce.Write(append(fields(attrs), zap.String("metric", h.name), zap.Float64("value", value))...)
	}
}

func (o *Observer) Trace(_ context.Context, msg string, attrs ...observability.Attribute) {
	if ce := o.logger.Check(TraceLevel, msg); ce != nil {
		ce.Write(fields(attrs)...)
	}
}

func (o *Observer) Debug(_ context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.Debug(msg, fields(attrs)...)
}

func (o *Observer) Info(_ context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.Info(msg, fields(attrs)...)
}

func (o *Observer) Warn(_ context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.Warn(msg, fields(attrs)...)
}

func (o *Observer) Error(_ context.Context, msg string, attrs ...observability.Attribute) {
	o.logger.Error(msg, fields(attrs)...)
}

// fields converts attributes to typed zap fields where the value type is
// known and falls back to zap.Any.
func fields(attrs []observability.Attribute) []zap.Field {
	converted := make([]zap.Field, 0, len(attrs)+3)
	for _, attr := range attrs {
		switch value := attr.Value.(type) {
		case string:
			converted = append(converted, zap.String(attr.Key, value))
		case int:
			converted = append(converted, zap.Int(attr.Key, value))
		case int64:
			converted = append(converted, zap.Int64(attr.Key, value))
		case float64:
			converted = append(converted, zap.Float64(attr.Key, value))
		case bool:
			converted = append(converted, zap.Bool(attr.Key, value))
		case time.Duration:
			converted = append(converted, zap.Duration(attr.Key, value))
		case []string:
			converted = append(converted, zap.Strings(attr.Key, value))
		case error:
			converted = append(converted, zap.NamedError(attr.Key, value))
		default:
			converted = append(converted, zap.Any(attr.Key, value))
		}
	}
	return converted
}
