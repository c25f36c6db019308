package graph

import (
	"context"
	"time"

	"github.com/leofalp/aiflow/providers/observability"
)

// observerState holds the provider resolved for one run and the run span.
// A nil provider disables observation.
type observerState struct {
	provider observability.Provider
	runSpan  observability.Span
}

// observeRunStart resolves the provider, opens the run span and attaches
// span and provider to ctx so nodes and model clients nest under it.
func (run *Run) observeRunStart(ctx *context.Context) {
	run.observer.provider = run.graph.config.observer
	if run.observer.provider == nil {
		run.observer.provider = observability.ObserverFromContext(*ctx)
	}
	if run.observer.provider == nil {
		return
	}

	attrs := []observability.Attribute{
		observability.String(observability.AttrGraphRunID, run.id),
		observability.Int(observability.AttrGraphTotalNodes, len(run.graph.nodes)),
		observability.String(observability.AttrGraphMergeOrder, string(run.graph.config.mergeOrder)),
	}
	var runSpan observability.Span
	*ctx, runSpan = run.observer.provider.StartSpan(*ctx, observability.SpanGraphRun, attrs...)
	run.observer.runSpan = runSpan

	*ctx = observability.ContextWithSpan(*ctx, runSpan)
	*ctx = observability.ContextWithObserver(*ctx, run.observer.provider)

	run.observer.provider.Info(*ctx, "graph run started", attrs...)
}

func (run *Run) observeRunCompleted(ctx context.Context, duration time.Duration) {
	provider := run.observer.provider
	if provider == nil {
		return
	}

	statusAttr := observability.String(observability.AttrGraphRunStatus, string(RunCompleted))
	provider.Histogram(observability.MetricGraphRunDuration).Record(ctx, duration.Seconds(), statusAttr)
	provider.Counter(observability.MetricGraphRunCount).Add(ctx, 1, statusAttr)
	provider.Info(ctx, "graph run completed",
		observability.String(observability.AttrGraphRunID, run.id),
		observability.Int(observability.AttrGraphSteps, run.Steps()),
		observability.Duration(observability.AttrDuration, duration),
	)

	if run.observer.runSpan != nil {
		run.observer.runSpan.SetAttributes(observability.Int(observability.AttrGraphSteps, run.Steps()))
		run.observer.runSpan.SetStatus(observability.StatusOK, "graph run completed")
		run.observer.runSpan.End()
	}
}

func (run *Run) observeRunFailed(ctx context.Context, runError error, duration time.Duration) {
	provider := run.observer.provider
	if provider == nil {
		return
	}

	statusAttr := observability.String(observability.AttrGraphRunStatus, string(RunFailed))
	provider.Histogram(observability.MetricGraphRunDuration).Record(ctx, duration.Seconds(), statusAttr)
	provider.Counter(observability.MetricGraphRunCount).Add(ctx, 1, statusAttr)
	provider.Error(ctx, "graph run failed",
		observability.String(observability.AttrGraphRunID, run.id),
		observability.Error(runError),
		observability.Duration(observability.AttrDuration, duration),
	)

	if run.observer.runSpan != nil {
		run.observer.runSpan.RecordError(runError)
		run.observer.runSpan.SetStatus(observability.StatusError, "graph run failed")
		run.observer.runSpan.End()
	}
}

func (run *Run) observeStepStart(ctx context.Context, step int, frontier []task) {
	if run.observer.provider == nil {
		return
	}

	names := make([]string, len(frontier))
	for index, current := range frontier {
		names[index] = current.node
	}
	run.observer.provider.Debug(ctx, "superstep started",
		observability.Int(observability.AttrGraphStep, step),
		observability.Int(observability.AttrGraphFrontierSize, len(frontier)),
		observability.StringSlice(observability.AttrGraphFrontier, names),
	)
}

// observeNodeStart opens the node span and attaches it to ctx.
func (run *Run) observeNodeStart(ctx *context.Context, step, index int, current task) {
	if run.observer.provider == nil {
		return
	}

	attrs := []observability.Attribute{
		observability.String(observability.AttrGraphNode, current.node),
		observability.Int(observability.AttrGraphStep, step),
	}
	if current.fanout {
		attrs = append(attrs, observability.Int(observability.AttrGraphFanoutIndex, index))
	}

	var nodeSpan observability.Span
	*ctx, nodeSpan = run.observer.provider.StartSpan(*ctx, observability.SpanGraphNodeExecute, attrs...)
	*ctx = observability.ContextWithSpan(*ctx, nodeSpan)

	run.observer.provider.Debug(*ctx, "node execution started", attrs...)
}

func (run *Run) observeNodeCompleted(ctx context.Context, name string, duration time.Duration) {
	provider := run.observer.provider
	if provider == nil {
		return
	}

	provider.Histogram(observability.MetricGraphNodeDuration).Record(ctx, duration.Seconds(),
		observability.String(observability.AttrGraphNode, name),
	)
	provider.Counter(observability.MetricGraphNodeCount).Add(ctx, 1,
		observability.String(observability.AttrGraphNode, name),
		observability.String(observability.AttrGraphNodeStatus, string(RunCompleted)),
	)
	provider.Debug(ctx, "node execution completed",
		observability.String(observability.AttrGraphNode, name),
		observability.Duration(observability.AttrDuration, duration),
	)

	if nodeSpan := observability.SpanFromContext(ctx); nodeSpan != nil {
		nodeSpan.SetAttributes(observability.Duration(observability.AttrDuration, duration))
		nodeSpan.SetStatus(observability.StatusOK, "node completed")
		nodeSpan.End()
	}
}

func (run *Run) observeNodeFailed(ctx context.Context, name string, nodeError error, duration time.Duration) {
	provider := run.observer.provider
	if provider == nil {
		return
	}

	provider.Histogram(observability.MetricGraphNodeDuration).Record(ctx, duration.Seconds(),
		observability.String(observability.AttrGraphNode, name),
	)
	provider.Counter(observability.MetricGraphNodeCount).Add(ctx, 1,
		observability.String(observability.AttrGraphNode, name),
		observability.String(observability.AttrGraphNodeStatus, string(RunFailed)),
	)
	provider.Error(ctx, "node execution failed",
		observability.String(observability.AttrGraphNode, name),
		observability.Error(nodeError),
		observability.Duration(observability.AttrDuration, duration),
	)

	if nodeSpan := observability.SpanFromContext(ctx); nodeSpan != nil {
		nodeSpan.RecordError(nodeError)
		nodeSpan.SetStatus(observability.StatusError, "node failed")
		nodeSpan.End()
	}
}

func (run *Run) observeHistoryError(ctx context.Context, historyError error) {
	if run.observer.provider == nil {
		return
	}
	run.observer.provider.Warn(ctx, "failed to record run history",
		observability.String(observability.AttrGraphRunID, run.id),
		observability.Error(historyError),
	)
}
