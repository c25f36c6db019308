package overview

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/leofalp/aiflow/core/cost"
	"github.com/leofalp/aiflow/providers/ai"
)

type contextKey struct{}

// Overview aggregates the model traffic of one execution: request count,
// token usage and tool calls requested by the model. It is safe for the
// concurrent node invocations of a superstep.
type Overview struct {
	mu        sync.Mutex
	started   time.Time
	requests  int
	failures  int
	usage     ai.Usage
	toolCalls map[string]int
	models    map[string]int
}

func New() *Overview {
	return &Overview{
		started:   time.Now(),
		toolCalls: make(map[string]int),
		models:    make(map[string]int),
	}
}

// FromContext returns the Overview stored in ctx, or nil.
func FromContext(ctx context.Context) *Overview {
	overview, _ := ctx.Value(contextKey{}).(*Overview)
	return overview
}

// ToContext returns a copy of ctx carrying overview.
func (overview *Overview) ToContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, overview)
}

// Record adds one model call. A nil response with a non-nil err counts as a
// failed request.
func (overview *Overview) Record(response *ai.ChatResponse, err error) {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	overview.requests++
	if err != nil || response == nil {
		overview.failures++
		return
	}
	overview.usage.Add(response.Usage)
	if response.Model != "" {
		overview.models[response.Model]++
	}
	for _, call := range response.ToolCalls {
		overview.toolCalls[call.Function.Name]++
	}
}

// Summary is a point-in-time copy of an Overview.
type Summary struct {
	Requests  int            `json:"requests"`
	Failures  int            `json:"failures,omitempty"`
	Usage     ai.Usage       `json:"usage"`
	ToolCalls map[string]int `json:"tool_calls,omitempty"`
	Models    map[string]int `json:"models,omitempty"`
	Elapsed   time.Duration  `json:"elapsed_ns"`
	Cost      *cost.Summary  `json:"cost,omitempty"`
}

// Summary copies the current totals. With a non-nil modelCost the usage is
// priced.
func (overview *Overview) Summary(modelCost *cost.ModelCost) Summary {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	summary := Summary{
		Requests:  overview.requests,
		Failures:  overview.failures,
		Usage:     overview.usage,
		ToolCalls: maps.Clone(overview.toolCalls),
		Models:    maps.Clone(overview.models),
		Elapsed:   time.Since(overview.started),
	}
	if modelCost != nil {
		priced := modelCost.Calculate(overview.usage)
		summary.Cost = &priced
	}
	return summary
}
