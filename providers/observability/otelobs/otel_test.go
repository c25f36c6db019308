package otelobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/leofalp/aiflow/providers/observability"
)

func newTraced() (*Observer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return New(WithTracerProvider(provider)), recorder
}

func attributeMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	values := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		values[string(kv.Key)] = kv.Value
	}
	return values
}

func TestObserver_SpanStatusAndError(testCase *testing.T) {
	obs, recorder := newTraced()

	ctx, span := obs.StartSpan(context.Background(), "graph.run", observability.String("graph.run.id", "r1"))
	obs.Info(ctx, "superstep started", observability.Int("graph.step", 1))
	span.SetAttributes(observability.Duration("elapsed", 1500*time.Millisecond))
	span.RecordError(errors.New("boom"))
	span.SetStatus(observability.StatusError, "node failed")
	span.End()

	ended := recorder.Ended()
	require.Len(testCase, ended, 1)
	recorded := ended[0]
	assert.Equal(testCase, "graph.run", recorded.Name())
	assert.Equal(testCase, codes.Error, recorded.Status().Code)
	assert.Equal(testCase, "node failed", recorded.Status().Description)

	attrs := attributeMap(recorded.Attributes())
	assert.Equal(testCase, "r1", attrs["graph.run.id"].AsString())
	assert.Equal(testCase, int64(1500), attrs["elapsed_ms"].AsInt64())

	var eventNames []string
	for _, event := range recorded.Events() {
		eventNames = append(eventNames, event.Name)
	}
	assert.Equal(testCase, []string{"superstep started", "exception"}, eventNames)
}

func TestObserver_LogWithoutSpan(testCase *testing.T) {
	obs, recorder := newTraced()
	obs.Warn(context.Background(), "no span")
	assert.Empty(testCase, recorder.Ended())
}

type capturedLogs struct {
	observability.Logger
	messages []string
}

func (c *capturedLogs) Error(_ context.Context, msg string, _ ...observability.Attribute) {
	c.messages = append(c.messages, msg)
}

func TestObserver_ForwardsToLogger(testCase *testing.T) {
	logs := &capturedLogs{}
	obs := New(WithLogger(logs))
	obs.Error(context.Background(), "run failed")
	assert.Equal(testCase, []string{"run failed"}, logs.messages)
}

func TestObserver_Metrics(testCase *testing.T) {
	reader := sdkmetric.NewManualReader()
	obs := New(WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))
	ctx := context.Background()

	obs.Counter("aiflow.graph.node.count").Add(ctx, 2, observability.String("status", "ok"))
	obs.Counter("aiflow.graph.node.count").Add(ctx, 3, observability.String("status", "ok"))
	obs.Histogram("aiflow.graph.node.duration").Record(ctx, 0.5)

	var collected metricdata.ResourceMetrics
	require.NoError(testCase, reader.Collect(ctx, &collected))
	require.Len(testCase, collected.ScopeMetrics, 1)
	assert.Equal(testCase, ScopeName, collected.ScopeMetrics[0].Scope.Name)

	byName := map[string]metricdata.Metrics{}
	for _, m := range collected.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	sum, ok := byName["aiflow.graph.node.count"].Data.(metricdata.Sum[int64])
	require.True(testCase, ok)
	require.Len(testCase, sum.DataPoints, 1)
	assert.Equal(testCase, int64(5), sum.DataPoints[0].Value)

	hist, ok := byName["aiflow.graph.node.duration"].Data.(metricdata.Histogram[float64])
	require.True(testCase, ok)
	require.Len(testCase, hist.DataPoints, 1)
	assert.Equal(testCase, uint64(1), hist.DataPoints[0].Count)
}
