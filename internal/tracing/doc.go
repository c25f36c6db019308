// Package tracing wires an OpenTelemetry tracer provider that exports spans
// over OTLP/HTTP. The CLI enables it when an OTLP endpoint is configured.
package tracing
