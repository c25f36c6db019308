// Package otelobs adapts OpenTelemetry tracing and metrics to
// observability.Provider.
//
//	observer := otelobs.New(
//		otelobs.WithTracerProvider(tracerProvider),
//		otelobs.WithLogger(slogobs.New()),
//	)
//
// Spans keep their status and recorded errors. Counters and histograms map
// to Int64Counter and Float64Histogram instruments, created once per name.
// Durations are exported as integer milliseconds under "<key>_ms".
package otelobs
