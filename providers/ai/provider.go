package ai

import (
	"context"
	"net/http"
)

// Provider is the contract every LLM adapter satisfies. It covers a single
// synchronous request: authentication, endpoint configuration, message
// dispatch and response interpretation.
type Provider interface {
	// SendMessage sends a chat request and returns the completed response.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// IsStopMessage reports whether the response is terminal, meaning the
	// model has nothing more to say and requested no tool calls.
	IsStopMessage(message *ChatResponse) bool

	// Name identifies the adapter in logs and traces.
	Name() string

	WithAPIKey(apiKey string) Provider
	WithBaseURL(baseURL string) Provider
	WithHttpClient(httpClient *http.Client) Provider
}

// IsStop applies the stop semantics shared by the adapters: tool calls are
// never terminal, canonical finish reasons are, and so is an empty reply.
func IsStop(message *ChatResponse) bool {
	if message == nil {
		return true
	}
	if len(message.ToolCalls) > 0 {
		return false
	}
	switch message.FinishReason {
	case FinishStop, FinishLength, FinishContentFilter:
		return true
	}
	return message.Content == ""
}
