package middleware

import (
	"context"
	"time"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/observability"
)

// LogLevel controls how much of each request the logging middleware emits.
type LogLevel int

const (
	// LogLevelMinimal logs model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the message count and finish reason.
	LogLevelStandard

	// LogLevelVerbose adds truncated prompt and response text. It logs user
	// content and must not be enabled in production.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware logs every provider call through logger. A nil logger
// resolves to the observer stored in the request context; calls without
// either are passed through silently.
func NewLoggingMiddleware(logger observability.Logger, level LogLevel) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			active := logger
			if active == nil {
				if provider := observability.ObserverFromContext(ctx); provider != nil {
					active = provider
				}
			}
			if active == nil {
				return next(ctx, request)
			}

			active.Info(ctx, "llm send", requestAttrs(request, level)...)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				active.Error(ctx, "llm send failed",
					observability.String(observability.AttrLLMModel, request.Model),
					observability.Duration(observability.AttrDuration, elapsed),
					observability.Error(err),
				)
				return nil, err
			}

			active.Info(ctx, "llm send completed", responseAttrs(response, elapsed, level)...)
			return response, nil
		}
	}
}

func requestAttrs(request ai.ChatRequest, level LogLevel) []observability.Attribute {
	attrs := []observability.Attribute{observability.String(observability.AttrLLMModel, request.Model)}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			observability.Int("message_count", len(request.Messages)),
			observability.Bool("structured", request.ResponseFormat != nil),
		)
	}
	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		last := request.Messages[len(request.Messages)-1]
		attrs = append(attrs,
			observability.String("last_message_role", string(last.Role)),
			observability.String("last_message_content", observability.TruncateString(last.Content, truncateLen)),
		)
	}
	return attrs
}

func responseAttrs(response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []observability.Attribute {
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMModel, response.Model),
		observability.Duration(observability.AttrDuration, elapsed),
	}

	if response.Usage != nil {
		attrs = append(attrs,
			observability.Int(observability.AttrLLMTokensPrompt, response.Usage.PromptTokens),
			observability.Int(observability.AttrLLMTokensCompletion, response.Usage.CompletionTokens),
			observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens),
		)
	}
	if level >= LogLevelStandard && response.FinishReason != "" {
		attrs = append(attrs, observability.String(observability.AttrLLMFinishReason, response.FinishReason))
	}
	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs, observability.String("response_content", observability.TruncateString(response.Content, truncateLen)))
	}
	return attrs
}
