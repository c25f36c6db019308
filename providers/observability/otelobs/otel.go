package otelobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/leofalp/aiflow/providers/observability"
)

// ScopeName is the instrumentation scope used for tracers and meters.
const ScopeName = "github.com/leofalp/aiflow"

// Observer implements observability.Provider on OpenTelemetry. Log records
// become events on the span found in the context and are forwarded to an
// optional logger.
type Observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger observability.Logger

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

var _ observability.Provider = (*Observer)(nil)

// Option configures an Observer.
type Option func(*Observer)

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Observer) {
		o.tracer = provider.Tracer(ScopeName)
	}
}

// WithMeterProvider replaces the global meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Observer) {
		o.meter = provider.Meter(ScopeName)
	}
}

// WithLogger forwards log records to logger in addition to span events.
func WithLogger(logger observability.Logger) Option {
	return func(o *Observer) {
		o.logger = logger
	}
}

// New builds an Observer on the global providers unless options say
// otherwise.
func New(opts ...Option) *Observer {
	o := &Observer{
		tracer:     otel.Tracer(ScopeName),
		meter:      otel.Meter(ScopeName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	ctx, otelSpan := o.tracer.Start(ctx, name, trace.WithAttributes(convert(attrs)...))
	return ctx, span{otelSpan}
}

type span struct {
	span trace.Span
}

func (s span) End() {
	s.span.End()
}

func (s span) SetAttributes(attrs ...observability.Attribute) {
	s.span.SetAttributes(convert(attrs)...)
}

func (s span) SetStatus(code observability.StatusCode, description string) {
	switch code {
	case observability.StatusOK:
		s.span.SetStatus(codes.Ok, description)
	case observability.StatusError:
		s.span.SetStatus(codes.Error, description)
	default:
		s.span.SetStatus(codes.Unset, description)
	}
}

func (s span) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}

func (s span) AddEvent(name string, attrs ...observability.Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(convert(attrs)...))
}

func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()

	instrument, ok := o.counters[name]
	if !ok {
		var err error
		instrument, err = o.meter.Int64Counter(name)
		if err != nil {
			otel.Handle(fmt.Errorf("counter %s: %w", name, err))
		}
		o.counters[name] = instrument
	}
	return counter{instrument}
}

func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()

	instrument, ok := o.histograms[name]
	if !ok {
		var err error
		instrument, err = o.meter.Float64Histogram(name)
		if err != nil {
			otel.Handle(fmt.Errorf("histogram %s: %w", name, err))
		}
		o.histograms[name] = instrument
	}
	return histogram{instrument}
}

type counter struct {
	instrument metric.Int64Counter
}

func (c counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	if c.instrument != nil {
		c.instrument.Add(ctx, value, metric.WithAttributes(convert(attrs)...))
	}
}

type histogram struct {
	instrument metric.Float64Histogram
}

func (h histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	if h.instrument != nil {
		h.instrument.Record(ctx, value, metric.WithAttributes(convert(attrs)...))
	}
}

func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, "trace", msg, attrs)
	if o.logger != nil {
		o.logger.Trace(ctx, msg, attrs...)
	}
}

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, "debug", msg, attrs)
	if o.logger != nil {
		o.logger.Debug(ctx, msg, attrs...)
	}
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, "info", msg, attrs)
	if o.logger != nil {
		o.logger.Info(ctx, msg, attrs...)
	}
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, "warn", msg, attrs)
	if o.logger != nil {
		o.logger.Warn(ctx, msg, attrs...)
	}
}

func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, "error", msg, attrs)
	if o.logger != nil {
		o.logger.Error(ctx, msg, attrs...)
	}
}

// log attaches the record to the recording span of ctx, if any.
func (o *Observer) log(ctx context.Context, level, msg string, attrs []observability.Attribute) {
	current := trace.SpanFromContext(ctx)
	if !current.IsRecording() {
		return
	}
	eventAttrs := append(convert(attrs), attribute.String("log.severity", level))
	current.AddEvent(msg, trace.WithAttributes(eventAttrs...))
}

func convert(attrs []observability.Attribute) []attribute.KeyValue {
	converted := make([]attribute.KeyValue, 0, len(attrs)+1)
	for _, attr := range attrs {
		switch value := attr.Value.(type) {
		case string:
			converted = append(converted, attribute.String(attr.Key, value))
		case int:
			converted = append(converted, attribute.Int(attr.Key, value))
		case int64:
			converted = append(converted, attribute.Int64(attr.Key, value))
		case float64:
			converted = append(converted, attribute.Float64(attr.Key, value))
		case bool:
			converted = append(converted, attribute.Bool(attr.Key, value))
		case time.Duration:
			converted = append(converted, attribute.Int64(attr.Key+"_ms", value.Milliseconds()))
		case []string:
			converted = append(converted, attribute.StringSlice(attr.Key, value))
		default:
			converted = append(converted, attribute.String(attr.Key, fmt.Sprint(value)))
		}
	}
	return converted
}
