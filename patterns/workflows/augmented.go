package workflows

import (
	"context"
	"fmt"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/patterns/graph"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/tool"
)

// State fields of the augmented workflow, besides FieldInput.
const (
	FieldSearchQuery = "search_query"
	FieldMessages    = "messages"
	FieldToolCalls   = "tool_calls"
	FieldAnswer      = "answer"
)

// SearchQuery is the structured rewrite of the user request.
type SearchQuery struct {
	SearchQuery   string `json:"search_query" jsonschema:"description=Query that is optimized for web search"`
	Justification string `json:"justification" jsonschema:"description=Why this query is relevant to the user's request."`
}

// Augmented combines the two augmentations of a model: structured output
// (plan_search rewrites the input as a SearchQuery) and tool use. call_model
// answers with tools bound; while it requests tool calls, run_tools executes
// them and hands the results back. The loop is bounded by the recursion
// limit of the graph.
func Augmented(model client.Model, tools []tool.GenericTool, opts ...graph.Option) (*graph.Graph, error) {
	schema, err := graph.NewSchema(graph.Fields{
		FieldInput:       graph.Replace[string](graph.Required()),
		FieldSearchQuery: graph.Replace[SearchQuery](),
		FieldMessages:    graph.Append[ai.Message](),
		FieldToolCalls:   graph.Replace[[]ai.ToolCall](),
		FieldAnswer:      graph.Replace[string](),
	})
	if err != nil {
		return nil, err
	}

	catalog := tool.NewCatalog(tools...)
	bound := model.BindTools(tools...)

	planSearch := func(ctx context.Context, state graph.State) (graph.Update, error) {
		input := graph.Value[string](state, FieldInput)
		query, err := client.Structured[SearchQuery](ctx, model, ai.UserMessage(input))
		if err != nil {
			return nil, fmt.Errorf("search query: %w", err)
		}
		prompt := fmt.Sprintf("%s\n\nA web search for this request would use: %q", input, query.SearchQuery)
		return graph.Update{
			FieldSearchQuery: query,
			FieldMessages:    []ai.Message{ai.UserMessage(prompt)},
		}, nil
	}

	callModel := func(ctx context.Context, state graph.State) (graph.Update, error) {
		response, err := bound.Invoke(ctx, graph.Value[[]ai.Message](state, FieldMessages)...)
		if err != nil {
			return nil, err
		}
		return graph.Update{
			FieldMessages:  []ai.Message{response.Message()},
			FieldToolCalls: response.ToolCalls,
			FieldAnswer:    response.Content,
		}, nil
	}

	runTools := func(ctx context.Context, state graph.State) (graph.Update, error) {
		results, err := client.ExecuteToolCalls(ctx, catalog, graph.Value[[]ai.ToolCall](state, FieldToolCalls))
		if err != nil {
			return nil, err
		}
		return graph.Update{FieldMessages: results, FieldToolCalls: nil}, nil
	}

	return graph.NewBuilder(schema, opts...).
		AddNode("plan_search", planSearch, graph.WithWrites(FieldSearchQuery, FieldMessages)).
		AddNode("call_model", callModel, graph.WithWrites(FieldMessages, FieldToolCalls, FieldAnswer)).
		AddNode("run_tools", runTools, graph.WithWrites(FieldMessages, FieldToolCalls)).
		AddEdge(graph.Start, "plan_search").
		AddEdge("plan_search", "call_model").
		AddConditionalEdges("call_model", PendingToolCalls, "run_tools", graph.End).
		AddEdge("run_tools", "call_model").
		Compile()
}

// PendingToolCalls routes to run_tools while the last reply requested tools.
func PendingToolCalls(state graph.State) string {
	if len(graph.Value[[]ai.ToolCall](state, FieldToolCalls)) > 0 {
		return "run_tools"
	}
	return graph.End
}
