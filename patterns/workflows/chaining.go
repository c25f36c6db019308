package workflows

import (
	"strings"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/patterns/graph"
)

// State fields of the prompt chaining workflow.
const (
	FieldTopic        = "topic"
	FieldJoke         = "joke"
	FieldImprovedJoke = "improved_joke"
	FieldFinalJoke    = "final_joke"
)

// Gate labels of the prompt chaining workflow.
const (
	GatePass = "Pass"
	GateFail = "Fail"
)

// PromptChaining decomposes joke writing into a sequence of model calls:
// generate_joke, then a programmatic gate, then improve_joke and
// polish_joke. A joke that passes the gate ends the run immediately.
func PromptChaining(model client.Model, opts ...graph.Option) (*graph.Graph, error) {
	schema, err := graph.NewSchema(graph.Fields{
		FieldTopic:        graph.Replace[string](graph.Required()),
		FieldJoke:         graph.Replace[string](),
		FieldImprovedJoke: graph.Replace[string](),
		FieldFinalJoke:    graph.Replace[string](),
	})
	if err != nil {
		return nil, err
	}

	return graph.NewBuilder(schema, opts...).
		AddNode("generate_joke", textNode(model, "Write a short joke about %s", FieldTopic, FieldJoke), graph.WithWrites(FieldJoke)).
		AddNode("improve_joke", textNode(model, "Make this joke funnier by adding wordplay: %s", FieldJoke, FieldImprovedJoke), graph.WithWrites(FieldImprovedJoke)).
		AddNode("polish_joke", textNode(model, "Add a surprising twist to this joke: %s", FieldImprovedJoke, FieldFinalJoke), graph.WithWrites(FieldFinalJoke)).
		AddEdge(graph.Start, "generate_joke").
		AddConditionalEdgesMap("generate_joke", CheckPunchline, map[string]string{
			GateFail: "improve_joke",
			GatePass: graph.End,
		}).
		AddEdge("improve_joke", "polish_joke").
		AddEdge("polish_joke", graph.End).
		Compile()
}

// CheckPunchline is the gate of PromptChaining. A joke containing "?" or
// "!" is considered to still lack a punchline and fails.
func CheckPunchline(state graph.State) string {
	joke := graph.Value[string](state, FieldJoke)
	if strings.ContainsAny(joke, "?!") {
		return GateFail
	}
	return GatePass
}

// JokeResult is the outcome of a PromptChaining run.
type JokeResult struct {
	Topic        string
	Joke         string
	ImprovedJoke string
	FinalJoke    string
}

// PassedGate reports whether the initial joke ended the run at the gate.
func (result JokeResult) PassedGate() bool {
	return result.ImprovedJoke == "" && result.FinalJoke == ""
}

// JokeResultFrom reads the joke fields of a finished PromptChaining run.
func JokeResultFrom(state graph.State) JokeResult {
	return JokeResult{
		Topic:        graph.Value[string](state, FieldTopic),
		Joke:         graph.Value[string](state, FieldJoke),
		ImprovedJoke: graph.Value[string](state, FieldImprovedJoke),
		FinalJoke:    graph.Value[string](state, FieldFinalJoke),
	}
}
