package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/observability"
)

// scriptedProvider answers each request with the next scripted reply.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []func(ai.ChatRequest) (*ai.ChatResponse, error)
	requests []ai.ChatRequest
}

func newScriptedProvider(replies ...func(ai.ChatRequest) (*ai.ChatResponse, error)) *scriptedProvider {
	return &scriptedProvider{replies: replies}
}

func reply(content string) func(ai.ChatRequest) (*ai.ChatResponse, error) {
	return func(ai.ChatRequest) (*ai.ChatResponse, error) {
		return &ai.ChatResponse{Content: content, FinishReason: ai.FinishStop, Usage: &ai.Usage{TotalTokens: 3}}, nil
	}
}

func (p *scriptedProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, request)
	index := len(p.requests) - 1
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index >= len(p.replies) {
		return reply("")(request)
	}
	return p.replies[index](request)
}

func (p *scriptedProvider) recorded() []ai.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ai.ChatRequest(nil), p.requests...)
}

func (p *scriptedProvider) IsStopMessage(message *ai.ChatResponse) bool { return ai.IsStop(message) }
func (p *scriptedProvider) Name() string                                { return "scripted" }
func (p *scriptedProvider) WithAPIKey(string) ai.Provider               { return p }
func (p *scriptedProvider) WithBaseURL(string) ai.Provider              { return p }
func (p *scriptedProvider) WithHttpClient(*http.Client) ai.Provider     { return p }

// recordingObserver keeps span names, statuses, counter totals and log
// messages.
type recordingObserver struct {
	mu       sync.Mutex
	spans    []*recordingSpan
	counters map[string]int64
	logs     []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{counters: make(map[string]int64)}
}

type recordingSpan struct {
	name   string
	status observability.StatusCode
	errors []error
	ended  bool
}

func (s *recordingSpan) End()                                              { s.ended = true }
func (s *recordingSpan) SetAttributes(...observability.Attribute)          {}
func (s *recordingSpan) SetStatus(code observability.StatusCode, _ string) { s.status = code }
func (s *recordingSpan) RecordError(err error)                             { s.errors = append(s.errors, err) }
func (s *recordingSpan) AddEvent(string, ...observability.Attribute)       {}

func (o *recordingObserver) StartSpan(ctx context.Context, name string, _ ...observability.Attribute) (context.Context, observability.Span) {
	o.mu.Lock()
	defer o.mu.Unlock()
	span := &recordingSpan{name: name}
	o.spans = append(o.spans, span)
	return ctx, span
}

type recordingCounter struct {
	observer *recordingObserver
	name     string
}

func (c recordingCounter) Add(_ context.Context, value int64, _ ...observability.Attribute) {
	c.observer.mu.Lock()
	defer c.observer.mu.Unlock()
	c.observer.counters[c.name] += value
}

type discardHistogram struct{}

func (discardHistogram) Record(context.Context, float64, ...observability.Attribute) {}

func (o *recordingObserver) Counter(name string) observability.Counter {
	return recordingCounter{observer: o, name: name}
}

func (o *recordingObserver) Histogram(string) observability.Histogram { return discardHistogram{} }

func (o *recordingObserver) log(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logs = append(o.logs, msg)
}

func (o *recordingObserver) Trace(_ context.Context, msg string, _ ...observability.Attribute) { o.log(msg) }
func (o *recordingObserver) Debug(_ context.Context, msg string, _ ...observability.Attribute) { o.log(msg) }
func (o *recordingObserver) Info(_ context.Context, msg string, _ ...observability.Attribute)  { o.log(msg) }
func (o *recordingObserver) Warn(_ context.Context, msg string, _ ...observability.Attribute)  { o.log(msg) }
func (o *recordingObserver) Error(_ context.Context, msg string, _ ...observability.Attribute) { o.log(msg) }
