package workflows

import (
	"context"
	"fmt"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/patterns/graph"
	"github.com/leofalp/aiflow/providers/ai"
)

// State fields of the routing workflow.
const (
	FieldInput    = "input"
	FieldDecision = "decision"
	FieldOutput   = "output"
)

// Route is the structured decision of the router model.
type Route struct {
	Step string `json:"step" jsonschema:"description=The next step in the routing process,enum=poem,enum=story,enum=joke"`
}

const routerPrompt = "Route the input to story, joke or poem based on the user's request"

// Routing classifies the input with a structured model call and hands it to
// a specialised writer. A decision outside poem, story and joke fails the
// run with a routing error.
func Routing(model client.Model, opts ...graph.Option) (*graph.Graph, error) {
	schema, err := graph.NewSchema(graph.Fields{
		FieldInput:    graph.Replace[string](graph.Required()),
		FieldDecision: graph.Replace[string](),
		FieldOutput:   graph.Replace[string](),
	})
	if err != nil {
		return nil, err
	}

	route := func(ctx context.Context, state graph.State) (graph.Update, error) {
		decision, err := client.Structured[Route](ctx, model,
			ai.SystemMessage(routerPrompt),
			ai.UserMessage(graph.Value[string](state, FieldInput)),
		)
		if err != nil {
			return nil, fmt.Errorf("route decision: %w", err)
		}
		return graph.Update{FieldDecision: decision.Step}, nil
	}

	writer := func(kind string) graph.NodeFunc {
		return func(ctx context.Context, state graph.State) (graph.Update, error) {
			content, err := invokeText(ctx, model,
				ai.SystemMessage(fmt.Sprintf("You are a writer. Answer the request with a %s.", kind)),
				ai.UserMessage(graph.Value[string](state, FieldInput)),
			)
			if err != nil {
				return nil, err
			}
			return graph.Update{FieldOutput: content}, nil
		}
	}

	return graph.NewBuilder(schema, opts...).
		AddNode("llm_call_router", route, graph.WithWrites(FieldDecision)).
		AddNode("write_story", writer("story"), graph.WithWrites(FieldOutput)).
		AddNode("write_joke", writer("joke"), graph.WithWrites(FieldOutput)).
		AddNode("write_poem", writer("poem"), graph.WithWrites(FieldOutput)).
		AddEdge(graph.Start, "llm_call_router").
		AddConditionalEdgesMap("llm_call_router", RouteDecision, map[string]string{
			"story": "write_story",
			"joke":  "write_joke",
			"poem":  "write_poem",
		}).
		AddEdge("write_story", graph.End).
		AddEdge("write_joke", graph.End).
		AddEdge("write_poem", graph.End).
		Compile()
}

// RouteDecision returns the label stored by the router node.
func RouteDecision(state graph.State) string {
	return graph.Value[string](state, FieldDecision)
}
