package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/patterns/graph"
)

// State fields of the parallelization workflow, besides FieldTopic and
// FieldJoke.
const (
	FieldStory          = "story"
	FieldPoem           = "poem"
	FieldCombinedOutput = "combined_output"
)

// ErrEmptyTopic is returned by workflows that need a non-blank topic.
var ErrEmptyTopic = errors.New("workflows: topic is empty")

// Parallelization runs three independent model calls on the same topic in
// one superstep and joins them in an aggregator.
func Parallelization(model client.Model, opts ...graph.Option) (*graph.Graph, error) {
	schema, err := graph.NewSchema(graph.Fields{
		FieldTopic:          graph.Replace[string](graph.Required()),
		FieldJoke:           graph.Replace[string](),
		FieldStory:          graph.Replace[string](),
		FieldPoem:           graph.Replace[string](),
		FieldCombinedOutput: graph.Replace[string](),
	})
	if err != nil {
		return nil, err
	}

	return graph.NewBuilder(schema, opts...).
		AddNode("prepare", prepareTopic, graph.WithWrites(FieldTopic)).
		AddNode("call_llm_1", textNode(model, "Write a joke about %s", FieldTopic, FieldJoke), graph.WithWrites(FieldJoke)).
		AddNode("call_llm_2", textNode(model, "Write a story about %s", FieldTopic, FieldStory), graph.WithWrites(FieldStory)).
		AddNode("call_llm_3", textNode(model, "Write a poem about %s", FieldTopic, FieldPoem), graph.WithWrites(FieldPoem)).
		AddNode("aggregator", aggregate, graph.WithWrites(FieldCombinedOutput)).
		AddEdge(graph.Start, "prepare").
		AddEdge("prepare", "call_llm_1").
		AddEdge("prepare", "call_llm_2").
		AddEdge("prepare", "call_llm_3").
		AddEdge("call_llm_1", "aggregator").
		AddEdge("call_llm_2", "aggregator").
		AddEdge("call_llm_3", "aggregator").
		AddEdge("aggregator", graph.End).
		Compile()
}

func prepareTopic(_ context.Context, state graph.State) (graph.Update, error) {
	topic := strings.TrimSpace(graph.Value[string](state, FieldTopic))
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	return graph.Update{FieldTopic: topic}, nil
}

func aggregate(_ context.Context, state graph.State) (graph.Update, error) {
	var combined strings.Builder
	fmt.Fprintf(&combined, "Here's a story, joke, and poem about %s!\n\n", graph.Value[string](state, FieldTopic))
	fmt.Fprintf(&combined, "STORY:\n%s\n\n", graph.Value[string](state, FieldStory))
	fmt.Fprintf(&combined, "JOKE:\n%s\n\n", graph.Value[string](state, FieldJoke))
	fmt.Fprintf(&combined, "POEM:\n%s", graph.Value[string](state, FieldPoem))
	return graph.Update{FieldCombinedOutput: combined.String()}, nil
}
