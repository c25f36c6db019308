// Package anthropic implements [ai.Provider] for Anthropic's Messages API.
//
// It converts [ai.ChatRequest] into the Messages wire format, authenticates
// with the x-api-key header and maps tool_use blocks back to [ai.ToolCall].
// Structured output is requested by forcing a single "respond" tool whose
// input schema is the requested output schema.
package anthropic
