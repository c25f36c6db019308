package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/aiflow/core/overview"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/observability"
	"github.com/leofalp/aiflow/providers/tool"
)

type route struct {
	Step string `json:"step" jsonschema:"enum=poem,enum=story,enum=joke"`
}

type searchInput struct {
	Query string `json:"query"`
}

func searchTool() tool.GenericTool {
	return tool.MustTool("search", func(_ context.Context, input searchInput) (string, error) {
		if input.Query == "fail" {
			return "", errors.New("backend down")
		}
		return "results for " + input.Query, nil
	})
}

func TestNew_Validation(testCase *testing.T) {
	_, err := New(nil)
	assert.ErrorContains(testCase, err, "provider is required")

	_, err = New(newScriptedProvider(), WithMiddleware(nil))
	assert.ErrorContains(testCase, err, "middleware 0 is nil")
}

func TestClient_Invoke(testCase *testing.T) {
	provider := newScriptedProvider(reply("hello"))
	model, err := New(provider,
		WithModel("test-model"),
		WithSystemPrompt("be nice"),
		WithGenerationConfig(ai.GenerationConfig{Temperature: 0.5}),
	)
	require.NoError(testCase, err)

	text, err := model.Prompt(context.Background(), "hi")
	require.NoError(testCase, err)
	assert.Equal(testCase, "hello", text)

	requests := provider.recorded()
	require.Len(testCase, requests, 1)
	assert.Equal(testCase, "test-model", requests[0].Model)
	assert.Equal(testCase, "be nice", requests[0].SystemPrompt)
	assert.Equal(testCase, []ai.Message{ai.UserMessage("hi")}, requests[0].Messages)
	assert.InDelta(testCase, 0.5, requests[0].GenerationConfig.Temperature, 0.001)
	assert.Nil(testCase, requests[0].ResponseFormat)
}

func TestClient_InvokeStructured(testCase *testing.T) {
	provider := newScriptedProvider(reply("Sure!\n```json\n{\"step\": \"poem\"}\n```"))
	model, err := New(provider)
	require.NoError(testCase, err)

	var decision route
	_, err = model.InvokeStructured(context.Background(), &decision, ai.UserMessage("write me a poem"))
	require.NoError(testCase, err)
	assert.Equal(testCase, "poem", decision.Step)

	format := provider.recorded()[0].ResponseFormat
	require.NotNil(testCase, format)
	assert.Equal(testCase, "route", format.Name)
	assert.Equal(testCase, []any{"poem", "story", "joke"}, format.OutputSchema.Properties["step"].Enum)
}

func TestClient_InvokeStructuredErrors(testCase *testing.T) {
	model, err := New(newScriptedProvider(reply("no json here")))
	require.NoError(testCase, err)

	var decision route
	_, err = model.InvokeStructured(context.Background(), decision)
	assert.ErrorContains(testCase, err, "non-nil pointer")

	_, err = model.InvokeStructured(context.Background(), &decision)
	assert.ErrorContains(testCase, err, "structured output")
	assert.Empty(testCase, decision.Step)
}

func TestStructured(testCase *testing.T) {
	model, err := New(newScriptedProvider(reply(`{"step":"joke"}`)))
	require.NoError(testCase, err)

	decision, err := Structured[route](context.Background(), model, ai.UserMessage("make me laugh"))
	require.NoError(testCase, err)
	assert.Equal(testCase, route{Step: "joke"}, decision)
}

func TestClient_BindTools(testCase *testing.T) {
	provider := newScriptedProvider(reply("a"), reply("b"))
	base, err := New(provider)
	require.NoError(testCase, err)

	bound := base.BindTools(searchTool())
	_, err = bound.Invoke(context.Background(), ai.UserMessage("find"))
	require.NoError(testCase, err)
	_, err = base.Invoke(context.Background(), ai.UserMessage("find"))
	require.NoError(testCase, err)

	requests := provider.recorded()
	require.Len(testCase, requests[0].Tools, 1)
	assert.Equal(testCase, "search", requests[0].Tools[0].Name)
	assert.Empty(testCase, requests[1].Tools, "binding must not modify the receiver")
	assert.Empty(testCase, base.Tools())
}

func TestClient_CallTools(testCase *testing.T) {
	model, err := New(newScriptedProvider(), WithTools(searchTool()))
	require.NoError(testCase, err)

	messages, err := model.CallTools(context.Background(), []ai.ToolCall{
		{ID: "1", Function: ai.ToolCallFunction{Name: "search", Arguments: `{"query":"go"}`}},
		{ID: "2", Function: ai.ToolCallFunction{Name: "missing", Arguments: `{}`}},
		{ID: "3", Function: ai.ToolCallFunction{Name: "search", Arguments: `{"query":"fail"}`}},
	})
	require.NoError(testCase, err)
	require.Len(testCase, messages, 3)

	assert.Equal(testCase, ai.ToolMessage("1", "search", `"results for go"`), messages[0])

	var missing ai.ToolResult
	require.NoError(testCase, json.Unmarshal([]byte(messages[1].Content), &missing))
	assert.Equal(testCase, "tool_not_found", missing.Error)

	var failed ai.ToolResult
	require.NoError(testCase, json.Unmarshal([]byte(messages[2].Content), &failed))
	assert.Equal(testCase, "tool_execution_failed", failed.Error)
	assert.Contains(testCase, failed.Message, "backend down")
}

func TestClient_CallToolsCancelled(testCase *testing.T) {
	model, err := New(newScriptedProvider(), WithTools(searchTool()))
	require.NoError(testCase, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = model.CallTools(ctx, []ai.ToolCall{{ID: "1", Function: ai.ToolCallFunction{Name: "search"}}})
	assert.ErrorIs(testCase, err, context.Canceled)
}

func TestClient_MiddlewareOrder(testCase *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next SendFunc) SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				order = append(order, name+">")
				response, err := next(ctx, request)
				order = append(order, "<"+name)
				return response, err
			}
		}
	}

	model, err := New(newScriptedProvider(reply("x")), WithMiddleware(tag("outer"), tag("inner")))
	require.NoError(testCase, err)
	_, err = model.Prompt(context.Background(), "hi")
	require.NoError(testCase, err)

	assert.Equal(testCase, []string{"outer>", "inner>", "<inner", "<outer"}, order)
}

func TestClient_Observability(testCase *testing.T) {
	failure := errors.New("provider down")
	provider := newScriptedProvider(reply("ok"), func(ai.ChatRequest) (*ai.ChatResponse, error) { return nil, failure })
	observer := newRecordingObserver()
	model, err := New(provider, WithObserver(observer))
	require.NoError(testCase, err)

	_, err = model.Prompt(context.Background(), "one")
	require.NoError(testCase, err)
	_, err = model.Prompt(context.Background(), "two")
	require.ErrorIs(testCase, err, failure)

	require.Len(testCase, observer.spans, 2)
	assert.Equal(testCase, observability.SpanClientInvoke, observer.spans[0].name)
	assert.Equal(testCase, observability.StatusOK, observer.spans[0].status)
	assert.Equal(testCase, observability.StatusError, observer.spans[1].status)
	assert.True(testCase, observer.spans[1].ended)
	assert.Equal(testCase, int64(2), observer.counters[observability.MetricClientRequestCount])
	assert.Equal(testCase, int64(3), observer.counters[observability.MetricClientTokensTotal])
	assert.Contains(testCase, observer.logs, "llm request failed")
}

func TestClient_ObserverFromContext(testCase *testing.T) {
	observer := newRecordingObserver()
	model, err := New(newScriptedProvider(reply("ok")))
	require.NoError(testCase, err)

	ctx := observability.ContextWithObserver(context.Background(), observer)
	_, err = model.Prompt(ctx, "hi")
	require.NoError(testCase, err)

	assert.Len(testCase, observer.spans, 1)
}

func TestClient_RecordsIntoOverview(testCase *testing.T) {
	provider := newScriptedProvider(
		reply("first"),
		func(ai.ChatRequest) (*ai.ChatResponse, error) { return nil, errors.New("overloaded") },
	)
	model, err := New(provider, WithModel("m"))
	require.NoError(testCase, err)

	tracker := overview.New()
	ctx := tracker.ToContext(context.Background())
	_, err = model.Invoke(ctx, ai.UserMessage("hi"))
	require.NoError(testCase, err)
	_, err = model.Invoke(ctx, ai.UserMessage("again"))
	require.Error(testCase, err)

	summary := tracker.Summary(nil)
	assert.Equal(testCase, 2, summary.Requests)
	assert.Equal(testCase, 1, summary.Failures)
	assert.Equal(testCase, 3, summary.Usage.TotalTokens)
}

func TestExecuteToolCalls(testCase *testing.T) {
	catalog := tool.NewCatalog(searchTool())
	messages, err := ExecuteToolCalls(context.Background(), catalog, []ai.ToolCall{
		{ID: "a", Function: ai.ToolCallFunction{Name: "search", Arguments: `{"query":"go"}`}},
		{ID: "b", Function: ai.ToolCallFunction{Name: "SEARCH", Arguments: `{"query":"fail"}`}},
	})
	require.NoError(testCase, err)
	require.Len(testCase, messages, 2)
	assert.Equal(testCase, `"results for go"`, messages[0].Content)
	assert.Contains(testCase, messages[1].Content, "tool_execution_failed")
	assert.Equal(testCase, "b", messages[1].ToolCallID)
}
