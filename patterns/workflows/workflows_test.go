package workflows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/aiflow/patterns/graph"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/tool"
	"github.com/leofalp/aiflow/providers/tool/calculator"
)

func TestNamesAndLookup(testCase *testing.T) {
	assert.Equal(testCase, []string{"augmented", "chaining", "orchestrator", "parallel", "routing"}, Names())

	definition, ok := Lookup("Parallel")
	require.True(testCase, ok)
	assert.Equal(testCase, FieldTopic, definition.InputField)
	assert.Equal(testCase, FieldCombinedOutput, definition.OutputField)

	_, ok = Lookup("evaluator")
	assert.False(testCase, ok)
}

func TestDefinition_OutputFallsBack(testCase *testing.T) {
	definition, ok := Lookup("chaining")
	require.True(testCase, ok)
	compiled, err := definition.Build(newFakeModel(), nil)
	require.NoError(testCase, err)

	passed, err := compiled.Schema().NewState(map[string]any{FieldTopic: "cats", FieldJoke: "Cats nap all day."})
	require.NoError(testCase, err)
	assert.Equal(testCase, "Cats nap all day.", definition.Output(passed))

	polished, err := compiled.Schema().NewState(map[string]any{FieldTopic: "cats", FieldJoke: "Why?", FieldFinalJoke: "Because."})
	require.NoError(testCase, err)
	assert.Equal(testCase, "Because.", definition.Output(polished))

	routing, _ := Lookup("routing")
	assert.Nil(testCase, routing.Output(graph.State{}))
}

func TestDefinitions_Build(testCase *testing.T) {
	for _, name := range Names() {
		definition, _ := Lookup(name)
		compiled, err := definition.Build(newFakeModel(), nil)
		require.NoError(testCase, err, name)
		assert.True(testCase, compiled.Schema().Has(definition.InputField), name)
		assert.True(testCase, compiled.Schema().Has(definition.OutputField), name)
	}
}

func TestPromptChaining_PassesGate(testCase *testing.T) {
	model := newFakeModel()
	model.reply = func([]ai.Message) (*ai.ChatResponse, error) {
		return &ai.ChatResponse{Content: "Cats nap all day."}, nil
	}
	compiled, err := PromptChaining(model)
	require.NoError(testCase, err)

	state, err := compiled.Invoke(context.Background(), map[string]any{FieldTopic: "cats"})
	require.NoError(testCase, err)

	result := JokeResultFrom(state)
	assert.True(testCase, result.PassedGate())
	assert.Equal(testCase, "Cats nap all day.", result.Joke)
	assert.Equal(testCase, []string{"Write a short joke about cats"}, model.log.prompts())
}

func TestPromptChaining_FailsGate(testCase *testing.T) {
	model := newFakeModel()
	compiled, err := PromptChaining(model)
	require.NoError(testCase, err)

	model.reply = func(messages []ai.Message) (*ai.ChatResponse, error) {
		prompt := messages[len(messages)-1].Content
		if strings.HasPrefix(prompt, "Write a short joke") {
			return &ai.ChatResponse{Content: "Why do cats sit on laptops?"}, nil
		}
		return echo(messages)
	}

	state, err := compiled.Invoke(context.Background(), map[string]any{FieldTopic: "cats"})
	require.NoError(testCase, err)

	result := JokeResultFrom(state)
	assert.False(testCase, result.PassedGate())
	assert.Equal(testCase, "re: Make this joke funnier by adding wordplay: Why do cats sit on laptops?", result.ImprovedJoke)
	assert.True(testCase, strings.HasPrefix(result.FinalJoke, "re: Add a surprising twist to this joke: re: Make"))
	assert.Len(testCase, model.log.prompts(), 3)
}

func TestPromptChaining_MissingTopic(testCase *testing.T) {
	compiled, err := PromptChaining(newFakeModel())
	require.NoError(testCase, err)

	_, err = compiled.Invoke(context.Background(), nil)
	assert.ErrorIs(testCase, err, graph.ErrSchema)
}

func TestCheckPunchline(testCase *testing.T) {
	schema := graph.MustSchema(graph.Fields{FieldJoke: graph.Replace[string]()})
	for joke, label := range map[string]string{
		"A plain statement.": GatePass,
		"Knock knock!":       GateFail,
		"Who's there?":       GateFail,
		"":                   GatePass,
	} {
		state, err := schema.NewState(map[string]any{FieldJoke: joke})
		require.NoError(testCase, err)
		assert.Equal(testCase, label, CheckPunchline(state), joke)
	}
}

func TestRouting(testCase *testing.T) {
	model := newFakeModel()
	model.decide = func([]ai.Message) (string, error) { return `{"step":"poem"}`, nil }
	model.reply = func(messages []ai.Message) (*ai.ChatResponse, error) {
		return &ai.ChatResponse{Content: messages[0].Content}, nil
	}
	compiled, err := Routing(model)
	require.NoError(testCase, err)

	state, err := compiled.Invoke(context.Background(), map[string]any{FieldInput: "Write me a poem about cats"})
	require.NoError(testCase, err)

	assert.Equal(testCase, "poem", graph.Value[string](state, FieldDecision))
	assert.Contains(testCase, graph.Value[string](state, FieldOutput), "with a poem")

	model.log.mu.Lock()
	routerCall := model.log.calls[0]
	model.log.mu.Unlock()
	require.Len(testCase, routerCall, 2)
	assert.Equal(testCase, ai.RoleSystem, routerCall[0].Role)
	assert.Equal(testCase, routerPrompt, routerCall[0].Content)
}

func TestRouting_UnknownDecision(testCase *testing.T) {
	model := newFakeModel()
	model.decide = func([]ai.Message) (string, error) { return `{"step":"limerick"}`, nil }
	compiled, err := Routing(model)
	require.NoError(testCase, err)

	_, err = compiled.Invoke(context.Background(), map[string]any{FieldInput: "limerick please"})
	assert.ErrorIs(testCase, err, graph.ErrRouting)
}

func TestRouting_DecisionFailure(testCase *testing.T) {
	model := newFakeModel()
	model.decide = func([]ai.Message) (string, error) { return "", errors.New("rate limited") }
	compiled, err := Routing(model)
	require.NoError(testCase, err)

	_, err = compiled.Invoke(context.Background(), map[string]any{FieldInput: "story"})
	assert.ErrorIs(testCase, err, graph.ErrNodeExecution)
	assert.ErrorContains(testCase, err, "rate limited")
}

func TestParallelization(testCase *testing.T) {
	model := newFakeModel()
	compiled, err := Parallelization(model, graph.WithMaxConcurrency(3))
	require.NoError(testCase, err)

	run, err := compiled.NewRun(map[string]any{FieldTopic: "  cats "})
	require.NoError(testCase, err)
	state, err := run.Execute(context.Background())
	require.NoError(testCase, err)

	assert.Equal(testCase, 3, run.Steps())
	assert.Equal(testCase, "cats", graph.Value[string](state, FieldTopic))
	combined := graph.Value[string](state, FieldCombinedOutput)
	assert.True(testCase, strings.HasPrefix(combined, "Here's a story, joke, and poem about cats!"))
	assert.Contains(testCase, combined, "STORY:\nre: Write a story about cats")
	assert.Contains(testCase, combined, "JOKE:\nre: Write a joke about cats")
	assert.Contains(testCase, combined, "POEM:\nre: Write a poem about cats")
	assert.Len(testCase, model.log.prompts(), 3)
}

func TestParallelization_EmptyTopic(testCase *testing.T) {
	model := newFakeModel()
	compiled, err := Parallelization(model)
	require.NoError(testCase, err)

	_, err = compiled.Invoke(context.Background(), map[string]any{FieldTopic: "   "})
	assert.ErrorIs(testCase, err, ErrEmptyTopic)
	assert.Empty(testCase, model.log.prompts())
}

func plannedModel(sections string) *fakeModel {
	model := newFakeModel()
	model.decide = func([]ai.Message) (string, error) { return sections, nil }
	model.reply = func(messages []ai.Message) (*ai.ChatResponse, error) {
		prompt := messages[len(messages)-1].Content
		name := strings.TrimPrefix(strings.Split(prompt, " and description")[0], "Here is the section name: ")
		return &ai.ChatResponse{Content: "## " + name}, nil
	}
	return model
}

func TestOrchestratorWorker(testCase *testing.T) {
	model := plannedModel(`{"sections":[
		{"name":"Intro","description":"what"},
		{"name":"Body","description":"how"},
		{"name":"Outro","description":"so what"}]}`)
	compiled, err := OrchestratorWorker(model, graph.WithMaxConcurrency(2))
	require.NoError(testCase, err)

	state, err := compiled.Invoke(context.Background(), map[string]any{FieldTopic: "LLM scaling laws"})
	require.NoError(testCase, err)

	assert.Equal(testCase, []string{"## Intro", "## Body", "## Outro"}, graph.Value[[]string](state, FieldCompletedSections))
	assert.Equal(testCase, "## Intro"+sectionBreak+"## Body"+sectionBreak+"## Outro", graph.Value[string](state, FieldFinalReport))
	assert.Equal(testCase, 3, hasPrefix(model.log.prompts(), "Here is the section name:"))
}

func TestOrchestratorWorker_CompletionOrderKeepsPlanOrder(testCase *testing.T) {
	model := plannedModel(`{"sections":[{"name":"A"},{"name":"B"},{"name":"C"},{"name":"D"}]}`)
	reply := model.reply
	model.reply = func(messages []ai.Message) (*ai.ChatResponse, error) {
		// Earlier sections finish last.
		prompt := messages[len(messages)-1].Content
		for index, name := range []string{"A", "B", "C"} {
			if strings.HasPrefix(prompt, "Here is the section name: "+name+" ") {
				time.Sleep(time.Duration(3-index) * 10 * time.Millisecond)
			}
		}
		return reply(messages)
	}
	compiled, err := OrchestratorWorker(model, graph.WithMergeOrder(graph.MergeCompletionOrder))
	require.NoError(testCase, err)

	state, err := compiled.Invoke(context.Background(), map[string]any{FieldTopic: "letters"})
	require.NoError(testCase, err)

	assert.Equal(testCase, []string{"## A", "## B", "## C", "## D"}, graph.Value[[]string](state, FieldCompletedSections))
	assert.Len(testCase, graph.Value[[]SectionDraft](state, FieldSectionDrafts), 4)
	assert.Equal(testCase, "## A"+sectionBreak+"## B"+sectionBreak+"## C"+sectionBreak+"## D", graph.Value[string](state, FieldFinalReport))
}

func TestOrchestratorWorker_NoSections(testCase *testing.T) {
	model := plannedModel(`{"sections":[]}`)
	compiled, err := OrchestratorWorker(model)
	require.NoError(testCase, err)

	run, err := compiled.NewRun(map[string]any{FieldTopic: "nothing"})
	require.NoError(testCase, err)
	state, err := run.Execute(context.Background())
	require.NoError(testCase, err)

	assert.Empty(testCase, graph.Value[string](state, FieldFinalReport))
	assert.Equal(testCase, []string{"orchestrator"}, run.Visited())
}

func toolCallReply(name, arguments string) *ai.ChatResponse {
	return &ai.ChatResponse{
		FinishReason: ai.FinishToolCalls,
		ToolCalls: []ai.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: ai.ToolCallFunction{Name: name, Arguments: arguments},
		}},
	}
}

func TestAugmented_ToolLoop(testCase *testing.T) {
	model := newFakeModel()
	model.decide = func([]ai.Message) (string, error) {
		return `{"search_query":"2 times 5","justification":"arithmetic"}`, nil
	}
	model.reply = func(messages []ai.Message) (*ai.ChatResponse, error) {
		last := messages[len(messages)-1]
		if last.Role == ai.RoleTool {
			return &ai.ChatResponse{Content: "2 times 5 is " + last.Content, FinishReason: ai.FinishStop}, nil
		}
		return toolCallReply("multiply", `{"a":2,"b":5}`), nil
	}

	compiled, err := Augmented(model, []tool.GenericTool{calculator.NewMultiplyTool()})
	require.NoError(testCase, err)

	state, err := compiled.Invoke(context.Background(), map[string]any{FieldInput: "What is 2 times 5?"})
	require.NoError(testCase, err)

	assert.Equal(testCase, "2 times 5 is 10", graph.Value[string](state, FieldAnswer))
	assert.Equal(testCase, SearchQuery{SearchQuery: "2 times 5", Justification: "arithmetic"}, graph.Value[SearchQuery](state, FieldSearchQuery))
	assert.Empty(testCase, graph.Value[[]ai.ToolCall](state, FieldToolCalls))

	messages := graph.Value[[]ai.Message](state, FieldMessages)
	require.Len(testCase, messages, 4)
	assert.Equal(testCase, []ai.MessageRole{ai.RoleUser, ai.RoleAssistant, ai.RoleTool, ai.RoleAssistant},
		[]ai.MessageRole{messages[0].Role, messages[1].Role, messages[2].Role, messages[3].Role})
	assert.Contains(testCase, messages[0].Content, `"2 times 5"`)
	assert.Equal(testCase, "call_1", messages[2].ToolCallID)
}

func TestAugmented_UnknownToolReportedToModel(testCase *testing.T) {
	model := newFakeModel()
	model.decide = func([]ai.Message) (string, error) { return `{"search_query":"q"}`, nil }
	model.reply = func(messages []ai.Message) (*ai.ChatResponse, error) {
		last := messages[len(messages)-1]
		if last.Role == ai.RoleTool {
			return &ai.ChatResponse{Content: last.Content}, nil
		}
		return toolCallReply("divide", `{}`), nil
	}

	compiled, err := Augmented(model, nil)
	require.NoError(testCase, err)

	state, err := compiled.Invoke(context.Background(), map[string]any{FieldInput: "divide"})
	require.NoError(testCase, err)
	assert.Contains(testCase, graph.Value[string](state, FieldAnswer), "tool_not_found")
}

func TestAugmented_EndlessToolCallsHitRecursionLimit(testCase *testing.T) {
	model := newFakeModel()
	model.decide = func([]ai.Message) (string, error) { return `{"search_query":"q"}`, nil }
	model.reply = func([]ai.Message) (*ai.ChatResponse, error) {
		return toolCallReply("multiply", `{"a":1,"b":1}`), nil
	}

	compiled, err := Augmented(model, []tool.GenericTool{calculator.NewMultiplyTool()}, graph.WithRecursionLimit(6))
	require.NoError(testCase, err)

	_, err = compiled.Invoke(context.Background(), map[string]any{FieldInput: "loop"})
	assert.ErrorIs(testCase, err, graph.ErrRecursionLimit)
}

func TestMermaid_ShowsWorkflowNodes(testCase *testing.T) {
	compiled, err := OrchestratorWorker(newFakeModel())
	require.NoError(testCase, err)

	diagram := compiled.Mermaid()
	for _, name := range []string{"orchestrator", "llm_call", "synthesizer"} {
		assert.Contains(testCase, diagram, name)
	}
}
