package graph

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one execution of a Graph against one initial State. A Run owns its
// state exclusively and can be executed only once.
type Run struct {
	id      string
	graph   *Graph
	initial State

	// observer is resolved when Execute starts and read-only afterwards.
	observer observerState

	mu      sync.Mutex
	status  RunStatus
	err     error
	steps   int
	visited []string
}

// NewRun validates initial against the schema and prepares a pending Run.
func (graph *Graph) NewRun(initial map[string]any) (*Run, error) {
	state, err := graph.schema.NewState(initial)
	if err != nil {
		return nil, err
	}
	return &Run{
		id:      uuid.NewString(),
		graph:   graph,
		initial: state,
		status:  RunPending,
	}, nil
}

// Invoke creates a Run for initial and executes it.
func (graph *Graph) Invoke(ctx context.Context, initial map[string]any) (State, error) {
	run, err := graph.NewRun(initial)
	if err != nil {
		return State{}, err
	}
	return run.Execute(ctx)
}

// ID returns the unique identifier of the run.
func (run *Run) ID() string {
	return run.id
}

// Status returns the current lifecycle state.
func (run *Run) Status() RunStatus {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.status
}

// Err returns the error that failed the run, or nil.
func (run *Run) Err() error {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.err
}

// Steps returns the number of supersteps completed so far.
func (run *Run) Steps() int {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.steps
}

// Visited returns the nodes invoked so far, one entry per invocation, in
// superstep and frontier order.
func (run *Run) Visited() []string {
	run.mu.Lock()
	defer run.mu.Unlock()
	visited := make([]string, len(run.visited))
	copy(visited, run.visited)
	return visited
}

func (run *Run) start() bool {
	run.mu.Lock()
	defer run.mu.Unlock()
	if run.status != RunPending {
		return false
	}
	run.status = RunRunning
	return true
}

func (run *Run) completeStep(frontier []task) {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.steps++
	for _, current := range frontier {
		run.visited = append(run.visited, current.node)
	}
}

func (run *Run) finish(status RunStatus, err error) {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.status = status
	run.err = err
}
