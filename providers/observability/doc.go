// Package observability defines the tracing, metrics and logging capability
// shared by the graph engine, the model client and the tools.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into one injectable
// dependency. Concrete sinks live in sub-packages: slogobs (log/slog),
// zapobs (go.uber.org/zap) and otelobs (OpenTelemetry). [Multi] fans a single
// observation out to several sinks.
//
// Providers and spans travel through a [context.Context] with
// [ContextWithObserver] and [ContextWithSpan]. Components that were not given
// an explicit provider look one up with [ObserverFromContext].
//
// semconv.go holds the attribute keys, span names and metric names, so every
// sink sees the same vocabulary.
package observability
