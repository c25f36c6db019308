package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStop(testCase *testing.T) {
	cases := map[string]struct {
		response *ChatResponse
		expected bool
	}{
		"nil":               {nil, true},
		"finish stop":       {&ChatResponse{Content: "x", FinishReason: FinishStop}, true},
		"finish length":     {&ChatResponse{Content: "x", FinishReason: FinishLength}, true},
		"tool calls win":    {&ChatResponse{FinishReason: FinishStop, ToolCalls: []ToolCall{{ID: "1"}}}, false},
		"empty content":     {&ChatResponse{}, true},
		"content no reason": {&ChatResponse{Content: "partial"}, false},
	}
	for name, tc := range cases {
		testCase.Run(name, func(testCase *testing.T) {
			assert.Equal(testCase, tc.expected, IsStop(tc.response))
		})
	}
}

func TestUsage_Add(testCase *testing.T) {
	total := Usage{PromptTokens: 1, TotalTokens: 1}
	total.Add(&Usage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5, CachedTokens: 1})
	total.Add(nil)

	assert.Equal(testCase, Usage{PromptTokens: 3, CompletionTokens: 3, TotalTokens: 6, CachedTokens: 1}, total)
}

func TestToolResult_ToJSON(testCase *testing.T) {
	encoded, err := NewToolResultError("tool_not_found", "no such tool").ToJSON()
	require.NoError(testCase, err)
	assert.JSONEq(testCase, `{"success":false,"error":"tool_not_found","message":"no such tool"}`, encoded)

	encoded, err = NewToolResultSuccess(map[string]int{"n": 1}).ToJSON()
	require.NoError(testCase, err)
	assert.JSONEq(testCase, `{"success":true,"data":{"n":1}}`, encoded)
}

func TestChatResponse_Message(testCase *testing.T) {
	calls := []ToolCall{{ID: "c1", Type: "function", Function: ToolCallFunction{Name: "search"}}}
	response := &ChatResponse{Content: "hi", ToolCalls: calls}

	message := response.Message()

	assert.Equal(testCase, RoleAssistant, message.Role)
	assert.Equal(testCase, "hi", message.Content)
	assert.Equal(testCase, calls, message.ToolCalls)
	assert.Equal(testCase, Message{Role: RoleTool, ToolCallID: "c1", Name: "search", Content: "{}"}, ToolMessage("c1", "search", "{}"))
}
