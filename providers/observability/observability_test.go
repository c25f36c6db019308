package observability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	name   string
	events *[]string
}

func (provider *recordingProvider) record(event string) {
	*provider.events = append(*provider.events, provider.name+":"+event)
}

func (provider *recordingProvider) StartSpan(ctx context.Context, name string, _ ...Attribute) (context.Context, Span) {
	provider.record("span " + name)
	return ctx, &recordingSpan{provider: provider}
}

func (provider *recordingProvider) Counter(name string) Counter {
	return recordingInstrument{provider: provider, name: name}
}

func (provider *recordingProvider) Histogram(name string) Histogram {
	return recordingInstrument{provider: provider, name: name}
}

func (provider *recordingProvider) Trace(_ context.Context, msg string, _ ...Attribute) {
	provider.record("trace " + msg)
}

func (provider *recordingProvider) Debug(_ context.Context, msg string, _ ...Attribute) {
	provider.record("debug " + msg)
}

func (provider *recordingProvider) Info(_ context.Context, msg string, _ ...Attribute) {
	provider.record("info " + msg)
}

func (provider *recordingProvider) Warn(_ context.Context, msg string, _ ...Attribute) {
	provider.record("warn " + msg)
}

func (provider *recordingProvider) Error(_ context.Context, msg string, _ ...Attribute) {
	provider.record("error " + msg)
}

type recordingSpan struct {
	provider *recordingProvider
}

func (span *recordingSpan) End() { span.provider.record("end") }
func (span *recordingSpan) SetAttributes(...Attribute) {}
func (span *recordingSpan) SetStatus(code StatusCode, _ string) {
	span.provider.record("status " + code.String())
}
func (span *recordingSpan) RecordError(err error) { span.provider.record("err " + err.Error()) }
func (span *recordingSpan) AddEvent(name string, _ ...Attribute) { span.provider.record("event " + name) }

type recordingInstrument struct {
	provider *recordingProvider
	name     string
}

func (instrument recordingInstrument) Add(_ context.Context, _ int64, _ ...Attribute) {
	instrument.provider.record("add " + instrument.name)
}

func (instrument recordingInstrument) Record(_ context.Context, _ float64, _ ...Attribute) {
	instrument.provider.record("record " + instrument.name)
}

func TestMulti_NilAndSingle(testCase *testing.T) {
	assert.Nil(testCase, Multi())
	assert.Nil(testCase, Multi(nil, nil))

	var events []string
	single := &recordingProvider{name: "a", events: &events}
	assert.Same(testCase, single, Multi(nil, single))
}

func TestMulti_ForwardsToEveryProvider(testCase *testing.T) {
	var events []string
	first := &recordingProvider{name: "a", events: &events}
	second := &recordingProvider{name: "b", events: &events}

	provider := Multi(first, second)
	require.NotNil(testCase, provider)

	ctx, span := provider.StartSpan(context.Background(), "work")
	span.AddEvent("tick")
	span.RecordError(errors.New("boom"))
	span.SetStatus(StatusError, "failed")
	span.End()
	provider.Counter("runs").Add(ctx, 1)
	provider.Histogram("latency").Record(ctx, 0.5)
	provider.Info(ctx, "hello")

	assert.Equal(testCase, []string{
		"a:span work", "b:span work",
		"a:event tick", "b:event tick",
		"a:err boom", "b:err boom",
		"a:status error", "b:status error",
		"a:end", "b:end",
		"a:add runs", "b:add runs",
		"a:record latency", "b:record latency",
		"a:info hello", "b:info hello",
	}, events)
}

func TestContext_ObserverRoundTrip(testCase *testing.T) {
	assert.Nil(testCase, ObserverFromContext(context.Background()))

	var events []string
	provider := &recordingProvider{name: "a", events: &events}
	ctx := ContextWithObserver(context.Background(), provider)
	assert.Same(testCase, provider, ObserverFromContext(ctx))
	assert.Nil(testCase, SpanFromContext(ctx))

	span := &recordingSpan{provider: provider}
	ctx = ContextWithSpan(ctx, span)
	assert.Same(testCase, span, SpanFromContext(ctx))
	assert.Same(testCase, provider, ObserverFromContext(ctx))
}

func TestStringSlice_Copies(testCase *testing.T) {
	values := []string{"a", "b"}
	attr := StringSlice("nodes", values)
	values[0] = "z"
	assert.Equal(testCase, []string{"a", "b"}, attr.Value)
}

func TestError_Attribute(testCase *testing.T) {
	assert.Equal(testCase, Attribute{Key: AttrError, Value: "boom"}, Error(errors.New("boom")))
	assert.Equal(testCase, Attribute{Key: AttrError, Value: ""}, Error(nil))
}

func TestTruncateString(testCase *testing.T) {
	assert.Equal(testCase, "short", TruncateString("short", 10))

	long := strings.Repeat("x", 20)
	truncated := TruncateString(long, 5)
	assert.Equal(testCase, "xxxxx... (truncated, total: 20 chars)", truncated)

	assert.Equal(testCase, long, TruncateString(long, 0))
}
