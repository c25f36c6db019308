// Package ai defines the provider-agnostic types shared by the LLM adapters
// under providers/ai. Each adapter maps [ChatRequest] to its own wire format
// and its reply back to [ChatResponse], keeping the client and the workflow
// patterns decoupled from any vendor API.
package ai
