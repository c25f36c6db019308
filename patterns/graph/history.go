package graph

import (
	"context"
	"sort"
	"sync"
	"time"
)

// TaskRecord describes one node invocation of a superstep.
type TaskRecord struct {
	Node     string
	Payload  Update
	Update   Update
	Duration time.Duration
}

// StepRecord describes one completed superstep: its invocations in frontier
// order and the state after their updates were merged.
type StepRecord struct {
	Step  int
	Tasks []TaskRecord
	State State
}

// HistoryProvider receives the progress of runs. Recording is best-effort:
// a failing provider is reported through the observer and never fails the
// run. Implementations must be safe for concurrent use by independent runs.
type HistoryProvider interface {
	// AppendStep stores a completed superstep of runID.
	AppendStep(ctx context.Context, runID string, record StepRecord) error

	// SetStatus stores the lifecycle state of runID.
	SetStatus(ctx context.Context, runID string, status RunStatus) error

	// Steps returns the supersteps of runID in execution order.
	Steps(ctx context.Context, runID string) ([]StepRecord, error)

	// Status returns the last stored lifecycle state of runID, or RunPending
	// for unknown runs.
	Status(ctx context.Context, runID string) (RunStatus, error)
}

// InMemoryHistory is a HistoryProvider kept in process memory. Useful for
// tests, debugging and replaying the updates of a run.
type InMemoryHistory struct {
	mu       sync.RWMutex
	steps    map[string][]StepRecord
	statuses map[string]RunStatus
}

var _ HistoryProvider = (*InMemoryHistory)(nil)

// NewInMemoryHistory returns an empty history.
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{
		steps:    make(map[string][]StepRecord),
		statuses: make(map[string]RunStatus),
	}
}

func (history *InMemoryHistory) AppendStep(_ context.Context, runID string, record StepRecord) error {
	history.mu.Lock()
	defer history.mu.Unlock()

	history.steps[runID] = append(history.steps[runID], record)
	return nil
}

func (history *InMemoryHistory) SetStatus(_ context.Context, runID string, status RunStatus) error {
	history.mu.Lock()
	defer history.mu.Unlock()

	history.statuses[runID] = status
	return nil
}

func (history *InMemoryHistory) Steps(_ context.Context, runID string) ([]StepRecord, error) {
	history.mu.RLock()
	defer history.mu.RUnlock()

	records := make([]StepRecord, len(history.steps[runID]))
	copy(records, history.steps[runID])
	return records, nil
}

func (history *InMemoryHistory) Status(_ context.Context, runID string) (RunStatus, error) {
	history.mu.RLock()
	defer history.mu.RUnlock()

	status, exists := history.statuses[runID]
	if !exists {
		return RunPending, nil
	}
	return status, nil
}

// Runs returns the identifiers of every run seen so far, sorted.
func (history *InMemoryHistory) Runs() []string {
	history.mu.RLock()
	defer history.mu.RUnlock()

	runIDs := make([]string, 0, len(history.statuses))
	for runID := range history.statuses {
		runIDs = append(runIDs, runID)
	}
	sort.Strings(runIDs)
	return runIDs
}

func (run *Run) recordStep(ctx context.Context, record StepRecord) {
	if run.graph.config.history == nil {
		return
	}
	if err := run.graph.config.history.AppendStep(ctx, run.id, record); err != nil {
		run.observeHistoryError(ctx, err)
	}
}

func (run *Run) recordStatus(ctx context.Context, status RunStatus) {
	if run.graph.config.history == nil {
		return
	}
	if err := run.graph.config.history.SetStatus(ctx, run.id, status); err != nil {
		run.observeHistoryError(ctx, err)
	}
}
