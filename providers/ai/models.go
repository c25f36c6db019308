package ai

import (
	"encoding/json"

	"github.com/leofalp/aiflow/internal/jsonschema"
)

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest is the provider-agnostic request every adapter converts to its
// own wire format.
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`
	Messages         []Message         `json:"messages"`                 // All messages except the system prompt
	SystemPrompt     string            `json:"system_prompt,omitempty"`
	Tools            []ToolDescription `json:"tools,omitempty"`
	ResponseFormat   *ResponseFormat   `json:"response_format,omitempty"`
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"`
	ToolChoiceForced string            `json:"tool_choice_forced,omitempty"` // "auto", "required" or a tool name
}

type ToolDescription struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// Message is a single turn of a conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // role=assistant requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // role=tool, links to the originating call
	Name       string     `json:"name,omitempty"`         // role=tool, name of the tool
}

type GenerationConfig struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"` // [0..2]
	TopP        float32 `json:"top_p,omitempty"`       // [0..1]
}

// ResponseFormat asks the model for a JSON document matching OutputSchema.
type ResponseFormat struct {
	Name         string             `json:"name,omitempty"`
	OutputSchema *jsonschema.Schema `json:"output_schema,omitempty"`
	Strict       bool               `json:"strict,omitempty"`
}

/*
	##### PROVIDER OUTPUT #####
*/

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
	CachedTokens     int `json:"cached_tokens,omitempty"`
}

// Add accumulates other into usage. A nil other is ignored.
func (usage *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	usage.PromptTokens += other.PromptTokens
	usage.CompletionTokens += other.CompletionTokens
	usage.TotalTokens += other.TotalTokens
	usage.CachedTokens += other.CachedTokens
}

// ChatResponse is the provider-agnostic completion.
type ChatResponse struct {
	Id           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
	Refusal      string     `json:"refusal,omitempty"`
}

// Message converts the response into the assistant turn to append to a
// conversation.
func (response *ChatResponse) Message() Message {
	return Message{Role: RoleAssistant, Content: response.Content, ToolCalls: response.ToolCalls}
}

// Canonical finish reasons.
const (
	FinishStop          = "stop"
	FinishLength        = "length"
	FinishToolCalls     = "tool_calls"
	FinishContentFilter = "content_filter"
)

/*
	##### TOOLS #####
*/

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// ToolResult is the uniform envelope sent back to the model after a tool ran.
type ToolResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`   // Machine-readable code when Success is false
	Message string `json:"message,omitempty"` // Human-readable description
	Data    any    `json:"data,omitempty"`
}

func NewToolResultSuccess(data any) ToolResult {
	return ToolResult{Success: true, Data: data}
}

// NewToolResultError builds a failed result. errorType is a machine-readable
// code such as "tool_not_found".
func NewToolResultError(errorType, message string) ToolResult {
	return ToolResult{Success: false, Error: errorType, Message: message}
}

func (tr ToolResult) ToJSON() (string, error) {
	bytes, err := json.Marshal(tr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

/*
	##### ROLES #####
*/

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage answers the tool call identified by callID.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Name: name, Content: content}
}
