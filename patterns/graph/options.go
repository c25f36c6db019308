package graph

import (
	"time"

	"github.com/leofalp/aiflow/providers/observability"
)

// DefaultRecursionLimit is the number of supersteps a run may take before it
// fails with ErrRecursionLimit.
const DefaultRecursionLimit = 25

// MergeOrder selects how the updates of one superstep are linearized.
type MergeOrder string

const (
	// MergeTaskOrder merges after every invocation of the superstep has
	// finished, in frontier order. Results are deterministic.
	MergeTaskOrder MergeOrder = "task"

	// MergeCompletionOrder merges each update as soon as its invocation
	// finishes. Replace fields written by siblings end up with the value of
	// the last one to complete.
	MergeCompletionOrder MergeOrder = "completion"
)

// graphConfig holds the run-time settings of a compiled graph.
type graphConfig struct {
	maxConcurrency int
	runTimeout     time.Duration
	recursionLimit int
	mergeOrder     MergeOrder
	observer       observability.Provider
	history        HistoryProvider
}

func defaultConfig() graphConfig {
	return graphConfig{
		recursionLimit: DefaultRecursionLimit,
		mergeOrder:     MergeTaskOrder,
	}
}

// Option configures a graph. Options are passed to NewBuilder and frozen by
// Compile.
type Option func(*graphConfig)

// NodeOption configures a single node. Node options are passed to AddNode.
type NodeOption func(*node)

// WithMaxConcurrency bounds the number of node invocations in flight within
// one superstep. Zero or a negative value means unbounded.
//
// Fan-outs that call a model once per item are the usual reason to set it:
//
//	graph.NewBuilder(schema, graph.WithMaxConcurrency(4))
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(config *graphConfig) {
		config.maxConcurrency = maxConcurrency
	}
}

// WithRunTimeout cancels a run that takes longer than timeout. The run fails
// with ErrCancelled. Zero disables the timeout.
func WithRunTimeout(timeout time.Duration) Option {
	return func(config *graphConfig) {
		config.runTimeout = timeout
	}
}

// WithRecursionLimit sets the maximum number of supersteps of a run. Graphs
// with cycles rely on it to terminate. Values below one keep the default.
func WithRecursionLimit(limit int) Option {
	return func(config *graphConfig) {
		if limit > 0 {
			config.recursionLimit = limit
		}
	}
}

// WithMergeOrder selects the merge linearization. The default is
// MergeTaskOrder.
func WithMergeOrder(order MergeOrder) Option {
	return func(config *graphConfig) {
		if order == MergeTaskOrder || order == MergeCompletionOrder {
			config.mergeOrder = order
		}
	}
}

// WithObserver attaches an observability provider to every run. Without it,
// runs use the provider found in their context, if any.
func WithObserver(provider observability.Provider) Option {
	return func(config *graphConfig) {
		config.observer = provider
	}
}

// WithHistory records every completed superstep of every run into provider.
func WithHistory(provider HistoryProvider) Option {
	return func(config *graphConfig) {
		config.history = provider
	}
}

// WithWrites restricts the fields a node may write. Compile rejects fields
// missing from the schema and runs fail with a SchemaError when the node
// returns anything else.
func WithWrites(fields ...string) NodeOption {
	return func(target *node) {
		if target.writes == nil {
			target.writes = make(map[string]struct{}, len(fields))
		}
		for _, field := range fields {
			target.writes[field] = struct{}{}
		}
	}
}

// WithNodeTimeout bounds each invocation of the node. An invocation that
// exceeds it sees its context cancelled; the node decides how to fail.
func WithNodeTimeout(timeout time.Duration) NodeOption {
	return func(target *node) {
		target.timeout = timeout
	}
}
