package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// task is one pending node invocation in the frontier.
type task struct {
	node string

	// payload is overlaid on the state view of a fan-out invocation.
	payload Update

	// fanout marks invocations started by a Send; they are never collapsed
	// with other triggers of the same node.
	fanout bool
}

// Execute drives the run to completion and returns the final state.
//
// Execution proceeds in supersteps. Every invocation in the frontier runs
// concurrently against the state as it was when the superstep began (plus
// its fan-out payload). Once all of them have finished, their updates are
// merged one at a time, routers are evaluated against the merged state, and
// the successors form the next frontier. Plain triggers of the same node
// collapse into one invocation, which makes a node reached from several
// parallel branches a join. The run completes when the frontier is empty.
//
// The first failing invocation fails the run and cancels its siblings. A
// cancelled ctx or an expired run timeout fails the run with ErrCancelled.
// On failure the returned State is empty.
func (run *Run) Execute(ctx context.Context) (State, error) {
	if !run.start() {
		return State{}, ErrRunStarted
	}

	if timeout := run.graph.config.runTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	startTime := time.Now()
	run.observeRunStart(&ctx)
	run.recordStatus(ctx, RunRunning)

	final, err := run.loop(ctx)
	duration := time.Since(startTime)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrCancelled) {
			err = fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
		}
		run.finish(RunFailed, err)
		run.recordStatus(ctx, RunFailed)
		run.observeRunFailed(ctx, err, duration)
		return State{}, err
	}

	run.finish(RunCompleted, nil)
	run.recordStatus(ctx, RunCompleted)
	run.observeRunCompleted(ctx, duration)
	return final, nil
}

func (run *Run) loop(ctx context.Context) (State, error) {
	graph := run.graph
	state := run.initial
	frontier := []task{{node: graph.entry}}
	joinProgress := make([]map[string]bool, len(graph.joins))

	for step := 0; len(frontier) > 0; step++ {
		if step >= graph.config.recursionLimit {
			return State{}, fmt.Errorf("%w: %d supersteps without reaching END", ErrRecursionLimit, graph.config.recursionLimit)
		}
		if err := ctx.Err(); err != nil {
			return State{}, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		run.observeStepStart(ctx, step, frontier)
		merged, records, err := run.executeStep(ctx, step, state, frontier)
		if err != nil {
			return State{}, err
		}
		state = merged
		run.completeStep(frontier)
		run.recordStep(ctx, StepRecord{Step: step, Tasks: records, State: state})

		frontier, err = graph.nextFrontier(frontier, state, joinProgress)
		if err != nil {
			return State{}, err
		}
	}
	return state, nil
}

// executeStep runs one superstep and returns the merged state.
func (run *Run) executeStep(ctx context.Context, step int, snapshot State, frontier []task) (State, []TaskRecord, error) {
	graph := run.graph
	group, groupCtx := errgroup.WithContext(ctx)
	if graph.config.maxConcurrency > 0 {
		group.SetLimit(graph.config.maxConcurrency)
	}

	records := make([]TaskRecord, len(frontier))
	updates := make([]Update, len(frontier))
	merged := snapshot
	var mergeMutex sync.Mutex

	for index, current := range frontier {
		group.Go(func() error {
			update, duration, err := run.invoke(groupCtx, step, index, current, snapshot)
			if err != nil {
				return err
			}
			records[index] = TaskRecord{Node: current.node, Payload: current.payload, Update: update, Duration: duration}
			if graph.config.mergeOrder == MergeCompletionOrder {
				mergeMutex.Lock()
				merged = graph.schema.apply(merged, update)
				mergeMutex.Unlock()
				return nil
			}
			updates[index] = update
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return State{}, nil, err
	}

	if graph.config.mergeOrder == MergeTaskOrder {
		for _, update := range updates {
			merged = graph.schema.apply(merged, update)
		}
	}
	return merged, records, nil
}

// invoke runs a single node and returns its validated update.
func (run *Run) invoke(ctx context.Context, step, index int, current task, snapshot State) (Update, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	graphNode := run.graph.nodes[current.node]
	nodeCtx := ctx
	if graphNode.timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, graphNode.timeout)
		defer cancel()
	}

	run.observeNodeStart(&nodeCtx, step, index, current)
	startTime := time.Now()
	update, err := callNode(nodeCtx, graphNode, snapshot.With(current.payload))
	duration := time.Since(startTime)
	if err != nil {
		err = &NodeExecutionError{Node: current.node, Step: step, Index: index, Err: err}
		run.observeNodeFailed(nodeCtx, current.node, err, duration)
		return nil, duration, err
	}

	normalized, err := run.graph.checkUpdate(graphNode, update)
	if err != nil {
		run.observeNodeFailed(nodeCtx, current.node, err, duration)
		return nil, duration, err
	}
	run.observeNodeCompleted(nodeCtx, current.node, duration)
	return normalized, duration, nil
}

func callNode(ctx context.Context, graphNode *node, view State) (update Update, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return graphNode.fn(ctx, view)
}

// checkUpdate enforces the node's write set and the schema types.
func (graph *Graph) checkUpdate(graphNode *node, update Update) (Update, error) {
	if graphNode.writes != nil {
		for _, field := range sortedKeys(update) {
			if _, allowed := graphNode.writes[field]; !allowed {
				return nil, &SchemaError{Node: graphNode.name, Field: field, Reason: "field is not in the node's write set"}
			}
		}
	}
	normalized, err := graph.schema.Validate(update)
	if err != nil {
		return nil, withNode(err, graphNode.name)
	}
	return normalized, nil
}

// nextFrontier resolves the outgoing edges of every node that completed in
// the last superstep. Plain tasks of the same node resolve their router once;
// every fan-out task resolves it on its own, against the merged state
// overlaid with its payload.
func (graph *Graph) nextFrontier(frontier []task, state State, joinProgress []map[string]bool) ([]task, error) {
	var next []task
	triggered := make(map[string]bool)
	trigger := func(name string) {
		if name == End || triggered[name] {
			return
		}
		triggered[name] = true
		next = append(next, task{node: name})
	}

	completed := make(map[string]bool, len(frontier))
	routedPlain := make(map[string]bool, len(frontier))
	for _, current := range frontier {
		completed[current.node] = true
		for _, to := range graph.edges[current.node] {
			trigger(to)
		}

		nodeRouter, routed := graph.routers[current.node]
		if !routed {
			continue
		}
		view := state
		if current.fanout {
			view = state.With(current.payload)
		} else {
			if routedPlain[current.node] {
				continue
			}
			routedPlain[current.node] = true
		}

		routedTasks, err := graph.resolveRouter(current.node, nodeRouter, view)
		if err != nil {
			return nil, err
		}
		for _, routedTask := range routedTasks {
			if routedTask.fanout {
				next = append(next, routedTask)
				continue
			}
			trigger(routedTask.node)
		}
	}

	for index, nodeJoin := range graph.joins {
		if joinProgress[index] == nil {
			joinProgress[index] = make(map[string]bool, len(nodeJoin.sources))
		}
		for _, source := range nodeJoin.sources {
			if completed[source] {
				joinProgress[index][source] = true
			}
		}
		if len(joinProgress[index]) == len(nodeJoin.sources) {
			joinProgress[index] = nil
			trigger(nodeJoin.target)
		}
	}
	return next, nil
}

// resolveRouter evaluates the router of from against state.
func (graph *Graph) resolveRouter(from string, nodeRouter *router, state State) (tasks []task, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			tasks = nil
			err = &RoutingError{Node: from, Allowed: nodeRouter.destinations, Reason: fmt.Sprintf("router panicked: %v", recovered)}
		}
	}()

	if nodeRouter.kind == EdgeConditional {
		decision := nodeRouter.route(state)
		destination := decision
		if nodeRouter.labels != nil {
			mapped, declared := nodeRouter.labels[decision]
			if !declared {
				return nil, &RoutingError{Node: from, Value: decision, Allowed: sortedKeys(nodeRouter.labels), Reason: "label not declared"}
			}
			destination = mapped
		} else if !slices.Contains(nodeRouter.destinations, decision) {
			return nil, &RoutingError{Node: from, Value: decision, Allowed: nodeRouter.destinations}
		}
		return []task{{node: destination}}, nil
	}

	sends := nodeRouter.fanout(state)
	tasks = make([]task, 0, len(sends))
	for _, send := range sends {
		target := send.Node
		if target == "" {
			if len(nodeRouter.destinations) != 1 {
				return nil, &RoutingError{Node: from, Allowed: nodeRouter.destinations, Reason: "send without a node needs a single fan-out target"}
			}
			target = nodeRouter.destinations[0]
		}
		if !slices.Contains(nodeRouter.destinations, target) {
			return nil, &RoutingError{Node: from, Value: target, Allowed: nodeRouter.destinations}
		}
		payload, err := graph.schema.Validate(send.Payload)
		if err != nil {
			return nil, withNode(err, from)
		}
		tasks = append(tasks, task{node: target, payload: payload, fanout: true})
	}
	return tasks, nil
}
