package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/aiflow/providers/ai"
)

const (
	defaultMaxTokens = 4096

	// respondToolName is the forced tool that carries structured output.
	respondToolName = "respond"
)

func requestToAnthropic(request ai.ChatRequest) (anthropicRequest, error) {
	req := anthropicRequest{
		Model:     request.Model,
		Messages:  buildMessages(request.Messages),
		System:    request.SystemPrompt,
		MaxTokens: defaultMaxTokens,
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
			req.MaxTokens = cfg.MaxTokens
		}
	}

	tools, err := buildAnthropicTools(request.Tools)
	if err != nil {
		return anthropicRequest{}, err
	}
	req.Tools = tools
	req.ToolChoice = buildAnthropicToolChoice(request.ToolChoiceForced)

	if format := request.ResponseFormat; format != nil {
		if format.OutputSchema == nil {
			return anthropicRequest{}, fmt.Errorf("structured output requires a schema")
		}
		schema, err := json.Marshal(format.OutputSchema)
		if err != nil {
			return anthropicRequest{}, fmt.Errorf("failed to marshal output schema: %w", err)
		}
		description := "Respond with the final answer."
		if format.Name != "" {
			description = fmt.Sprintf("Respond with the final %s.", format.Name)
		}
		req.Tools = append(req.Tools, anthropicTool{Name: respondToolName, Description: description, InputSchema: schema})
		req.ToolChoice = &anthropicToolChoice{Type: "tool", Name: respondToolName}
	}

	return req, nil
}

// buildMessages converts the conversation into strictly alternating
// user/assistant turns. Consecutive tool results merge into one user turn.
func buildMessages(messages []ai.Message) []anthropicMessage {
	var result []anthropicMessage

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleUser, ai.RoleSystem:
			result = append(result, anthropicMessage{
				Role:    "user",
				Content: []anthropicContentBlock{{Type: "text", Text: msg.Content}},
			})

		case ai.RoleAssistant:
			assistantMsg := anthropicMessage{Role: "assistant"}
			if msg.Content != "" {
				assistantMsg.Content = append(assistantMsg.Content, anthropicContentBlock{Type: "text", Text: msg.Content})
			}
			for _, toolCall := range msg.ToolCalls {
				input := json.RawMessage(toolCall.Function.Arguments)
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				assistantMsg.Content = append(assistantMsg.Content, anthropicContentBlock{
					Type:  "tool_use",
					ID:    toolCall.ID,
					Name:  toolCall.Function.Name,
					Input: input,
				})
			}
			if len(assistantMsg.Content) > 0 {
				result = append(result, assistantMsg)
			}

		case ai.RoleTool:
			block := anthropicContentBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content}
			if len(result) > 0 && isAllToolResults(result[len(result)-1]) {
				result[len(result)-1].Content = append(result[len(result)-1].Content, block)
			} else {
				result = append(result, anthropicMessage{Role: "user", Content: []anthropicContentBlock{block}})
			}
		}
	}

	return result
}

func isAllToolResults(msg anthropicMessage) bool {
	if msg.Role != "user" || len(msg.Content) == 0 {
		return false
	}
	for _, block := range msg.Content {
		if block.Type != "tool_result" {
			return false
		}
	}
	return true
}

func buildAnthropicTools(tools []ai.ToolDescription) ([]anthropicTool, error) {
	var result []anthropicTool
	for _, tool := range tools {
		if tool.Name == respondToolName {
			return nil, fmt.Errorf("tool name %q is reserved", respondToolName)
		}
		entry := anthropicTool{Name: tool.Name, Description: tool.Description}
		if tool.Parameters != nil {
			schema, err := json.Marshal(tool.Parameters)
			if err != nil {
				return nil, fmt.Errorf("tool %s: failed to marshal parameters: %w", tool.Name, err)
			}
			entry.InputSchema = schema
		} else {
			entry.InputSchema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		result = append(result, entry)
	}
	return result, nil
}

func buildAnthropicToolChoice(forced string) *anthropicToolChoice {
	switch strings.ToLower(forced) {
	case "":
		return nil
	case "auto":
		return &anthropicToolChoice{Type: "auto"}
	case "any", "required":
		return &anthropicToolChoice{Type: "any"}
	default:
		return &anthropicToolChoice{Type: "tool", Name: forced}
	}
}

// anthropicToGeneric maps the Messages API response to [ai.ChatResponse].
// When structured is set the respond tool input becomes the content.
func anthropicToGeneric(response anthropicResponse, structured bool) *ai.ChatResponse {
	result := &ai.ChatResponse{
		Id:    response.ID,
		Model: response.Model,
	}

	var textParts []string
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)
		case "tool_use":
			if structured && block.Name == respondToolName {
				result.Content = string(block.Input)
				continue
			}
			result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
				ID:       block.ID,
				Type:     "function",
				Function: ai.ToolCallFunction{Name: block.Name, Arguments: string(block.Input)},
			})
		}
	}

	if result.Content == "" {
		result.Content = strings.Join(textParts, "\n")
	}
	result.FinishReason = mapStopReason(response.StopReason)
	if structured && len(result.ToolCalls) == 0 {
		result.FinishReason = ai.FinishStop
	}

	// input_tokens excludes cache reads and writes; PromptTokens counts them.
	cached := response.Usage.CacheCreationInputTokens + response.Usage.CacheReadInputTokens
	result.Usage = &ai.Usage{
		PromptTokens:     response.Usage.InputTokens + cached,
		CompletionTokens: response.Usage.OutputTokens,
		TotalTokens:      response.Usage.InputTokens + cached + response.Usage.OutputTokens,
		CachedTokens:     cached,
	}
	return result
}

func mapStopReason(stopReason string) string {
	switch stopReason {
	case "tool_use":
		return ai.FinishToolCalls
	case "max_tokens":
		return ai.FinishLength
	case "refusal":
		return ai.FinishContentFilter
	default:
		return ai.FinishStop
	}
}
