package openai

import (
	"strings"

	"github.com/leofalp/aiflow/providers/ai"
)

func requestFromGeneric(request ai.ChatRequest) chatCompletionRequest {
	req := chatCompletionRequest{Model: request.Model}

	if request.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: string(ai.RoleSystem), Content: &request.SystemPrompt})
	}
	for _, msg := range request.Messages {
		req.Messages = append(req.Messages, messageFromGeneric(msg))
	}

	if cfg := request.GenerationConfig; cfg != nil {
		if cfg.Temperature > 0 {
			temperature := float64(cfg.Temperature)
			req.Temperature = &temperature
		}
		if cfg.TopP > 0 {
			topP := float64(cfg.TopP)
			req.TopP = &topP
		}
		if cfg.MaxTokens > 0 {
			maxTokens := cfg.MaxTokens
			req.MaxTokens = &maxTokens
		}
	}

	for _, tool := range request.Tools {
		req.Tools = append(req.Tools, chatTool{
			Type:     "function",
			Function: chatFunction{Name: tool.Name, Description: tool.Description, Parameters: tool.Parameters},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = toolChoice(request.ToolChoiceForced)
	}

	if format := request.ResponseFormat; format != nil && format.OutputSchema != nil {
		name := format.Name
		if name == "" {
			name = "response"
		}
		req.ResponseFormat = &chatResponseFormat{
			Type:       "json_schema",
			JSONSchema: &chatJSONSchema{Name: name, Schema: format.OutputSchema, Strict: format.Strict},
		}
	}
	return req
}

func messageFromGeneric(msg ai.Message) chatMessage {
	converted := chatMessage{Role: string(msg.Role), Name: msg.Name, ToolCallID: msg.ToolCallID}
	if msg.Content != "" || len(msg.ToolCalls) == 0 {
		content := msg.Content
		converted.Content = &content
	}
	for _, call := range msg.ToolCalls {
		converted.ToolCalls = append(converted.ToolCalls, chatToolCall{
			ID:       call.ID,
			Type:     "function",
			Function: chatFunctionCall{Name: call.Function.Name, Arguments: call.Function.Arguments},
		})
	}
	return converted
}

func toolChoice(forced string) any {
	switch strings.ToLower(forced) {
	case "":
		return nil
	case "auto", "none", "required":
		return strings.ToLower(forced)
	case "any":
		return "required"
	default:
		choice := chatToolChoice{Type: "function"}
		choice.Function.Name = forced
		return choice
	}
}

func responseToGeneric(response chatCompletionResponse) *ai.ChatResponse {
	choice := response.Choices[0]
	result := &ai.ChatResponse{
		Id:           response.ID,
		Model:        response.Model,
		Content:      choice.Message.Content,
		Refusal:      choice.Message.Refusal,
		FinishReason: choice.FinishReason,
	}
	for _, call := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
			ID:       call.ID,
			Type:     "function",
			Function: ai.ToolCallFunction{Name: call.Function.Name, Arguments: call.Function.Arguments},
		})
	}
	if usage := response.Usage; usage != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		}
		if usage.PromptTokensDetails != nil {
			result.Usage.CachedTokens = usage.PromptTokensDetails.CachedTokens
		}
	}
	return result
}
