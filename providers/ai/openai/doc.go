// Package openai implements [ai.Provider] for the OpenAI Chat Completions API
// and compatible endpoints. Structured output uses the json_schema
// response_format; tools map to function tools with bearer authentication.
package openai
