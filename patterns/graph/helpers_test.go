package graph

import (
	"context"
	"sync"
	"time"

	"github.com/leofalp/aiflow/providers/observability"
)

// appendName returns a node that appends its own name to the "sequence" field.
func appendName(name string) NodeFunc {
	return func(_ context.Context, _ State) (Update, error) {
		return Update{"sequence": []string{name}}, nil
	}
}

func noop(_ context.Context, _ State) (Update, error) {
	return nil, nil
}

func sequenceSchema() *Schema {
	return MustSchema(Fields{"sequence": Append[string]()})
}

// testObserver records spans, metrics and log messages. Safe for concurrent use.
type testObserver struct {
	mu       sync.Mutex
	spans    []*testSpan
	counters map[string]int64
	records  map[string]int
	messages []string
}

var _ observability.Provider = (*testObserver)(nil)

func newTestObserver() *testObserver {
	return &testObserver{counters: make(map[string]int64), records: make(map[string]int)}
}

func (observer *testObserver) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	span := &testSpan{observer: observer, name: name, attrs: attrs}
	observer.spans = append(observer.spans, span)
	return ctx, span
}

func (observer *testObserver) Counter(name string) observability.Counter {
	return testCounter{observer: observer, name: name}
}

func (observer *testObserver) Histogram(name string) observability.Histogram {
	return testHistogram{observer: observer, name: name}
}

func (observer *testObserver) log(msg string) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.messages = append(observer.messages, msg)
}

func (observer *testObserver) Trace(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Debug(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Info(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Warn(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Error(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) spanNames() map[string]int {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	names := make(map[string]int)
	for _, span := range observer.spans {
		names[span.name]++
	}
	return names
}

func (observer *testObserver) allEnded() bool {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	for _, span := range observer.spans {
		if !span.ended {
			return false
		}
	}
	return true
}

func (observer *testObserver) counter(name string) int64 {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	return observer.counters[name]
}

func (observer *testObserver) hasMessage(msg string) bool {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	for _, message := range observer.messages {
		if message == msg {
			return true
		}
	}
	return false
}

type testSpan struct {
	observer *testObserver
	name     string
	attrs    []observability.Attribute
	ended    bool
	status   observability.StatusCode
	errs     []error
}

func (span *testSpan) End() {
	span.observer.mu.Lock()
	defer span.observer.mu.Unlock()
	span.ended = true
}

func (span *testSpan) SetAttributes(attrs ...observability.Attribute) {
	span.observer.mu.Lock()
	defer span.observer.mu.Unlock()
	span.attrs = append(span.attrs, attrs...)
}

func (span *testSpan) SetStatus(code observability.StatusCode, _ string) {
	span.observer.mu.Lock()
	defer span.observer.mu.Unlock()
	span.status = code
}

func (span *testSpan) RecordError(err error) {
	span.observer.mu.Lock()
	defer span.observer.mu.Unlock()
	span.errs = append(span.errs, err)
}

func (span *testSpan) AddEvent(string, ...observability.Attribute) {}

type testCounter struct {
	observer *testObserver
	name     string
}

func (counter testCounter) Add(_ context.Context, value int64, _ ...observability.Attribute) {
	counter.observer.mu.Lock()
	defer counter.observer.mu.Unlock()
	counter.observer.counters[counter.name] += value
}

type testHistogram struct {
	observer *testObserver
	name     string
}

func (histogram testHistogram) Record(context.Context, float64, ...observability.Attribute) {
	histogram.observer.mu.Lock()
	defer histogram.observer.mu.Unlock()
	histogram.observer.records[histogram.name]++
}

func sleepFor(ctx context.Context, milliseconds int) {
	timer := time.NewTimer(time.Duration(milliseconds) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
