package workflows

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/patterns/graph"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/tool"
)

// Definition describes a runnable workflow: how to build its graph, which
// state field takes the user input and which one holds the final answer.
type Definition struct {
	Name        string
	Description string
	InputField  string
	OutputField string

	// FallbackField holds the answer when a run ends before OutputField is
	// written, as the chaining workflow does when the joke passes the gate.
	FallbackField string

	Build func(model client.Model, tools []tool.GenericTool, opts ...graph.Option) (*graph.Graph, error)
}

// Output returns the final answer of a finished run.
func (definition Definition) Output(state graph.State) any {
	value, _ := state.Get(definition.OutputField)
	if definition.FallbackField == "" || !isEmpty(value) {
		return value
	}
	fallback, _ := state.Get(definition.FallbackField)
	return fallback
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	text, isText := value.(string)
	return isText && text == ""
}

var definitions = map[string]Definition{
	"chaining": {
		Name:        "chaining",
		Description: "generate a joke, gate it, then improve and polish it",
		InputField:    FieldTopic,
		OutputField:   FieldFinalJoke,
		FallbackField: FieldJoke,
		Build: func(model client.Model, _ []tool.GenericTool, opts ...graph.Option) (*graph.Graph, error) {
			return PromptChaining(model, opts...)
		},
	},
	"routing": {
		Name:        "routing",
		Description: "classify the request and hand it to a story, joke or poem writer",
		InputField:  FieldInput,
		OutputField: FieldOutput,
		Build: func(model client.Model, _ []tool.GenericTool, opts ...graph.Option) (*graph.Graph, error) {
			return Routing(model, opts...)
		},
	},
	"parallel": {
		Name:        "parallel",
		Description: "write a joke, a story and a poem concurrently and combine them",
		InputField:  FieldTopic,
		OutputField: FieldCombinedOutput,
		Build: func(model client.Model, _ []tool.GenericTool, opts ...graph.Option) (*graph.Graph, error) {
			return Parallelization(model, opts...)
		},
	},
	"orchestrator": {
		Name:        "orchestrator",
		Description: "plan report sections, write each one in parallel and synthesize the report",
		InputField:  FieldTopic,
		OutputField: FieldFinalReport,
		Build: func(model client.Model, _ []tool.GenericTool, opts ...graph.Option) (*graph.Graph, error) {
			return OrchestratorWorker(model, opts...)
		},
	},
	"augmented": {
		Name:        "augmented",
		Description: "extract a search query, then answer with tool calls",
		InputField:  FieldInput,
		OutputField: FieldAnswer,
		Build:       Augmented,
	},
}

// Lookup returns the workflow registered under name.
func Lookup(name string) (Definition, bool) {
	definition, ok := definitions[strings.ToLower(name)]
	return definition, ok
}

// Names lists the registered workflows in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// invokeText sends messages and returns the reply text.
func invokeText(ctx context.Context, model client.Model, messages ...ai.Message) (string, error) {
	response, err := model.Invoke(ctx, messages...)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// textNode builds a node that prompts the model with format applied to the
// string field source and stores the reply in target.
func textNode(model client.Model, format, source, target string) graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (graph.Update, error) {
		content, err := invokeText(ctx, model, ai.UserMessage(fmt.Sprintf(format, graph.Value[string](state, source))))
		if err != nil {
			return nil, err
		}
		return graph.Update{target: content}, nil
	}
}
