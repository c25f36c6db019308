package client

import (
	"context"
	"time"

	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/observability"
)

// newObservabilityMiddleware records a span, request metrics and logs for
// every call. A nil observer falls back to the one carried by the context,
// so calls made from inside a graph node land under the node span.
func newObservabilityMiddleware(observer observability.Provider, defaultModel string) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			provider := observer
			if provider == nil {
				provider = observability.ObserverFromContext(ctx)
			}
			if provider == nil {
				return next(ctx, request)
			}

			model := request.Model
			if model == "" {
				model = defaultModel
			}

			ctx, span := provider.StartSpan(ctx, observability.SpanClientInvoke,
				observability.String(observability.AttrLLMModel, model),
				observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
				observability.Int(observability.AttrClientToolsCount, len(request.Tools)),
				observability.Bool(observability.AttrClientStructured, request.ResponseFormat != nil),
			)
			defer span.End()
			ctx = observability.ContextWithSpan(ctx, span)
			ctx = observability.ContextWithObserver(ctx, provider)

			provider.Debug(ctx, "llm request",
				observability.String(observability.AttrLLMModel, model),
				observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
			)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			provider.Histogram(observability.MetricClientRequestDuration).Record(ctx, elapsed.Seconds(),
				observability.String(observability.AttrLLMModel, model),
			)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(observability.StatusError, "llm request failed")
				provider.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
					observability.String(observability.AttrStatus, "error"),
					observability.String(observability.AttrLLMModel, model),
				)
				provider.Error(ctx, "llm request failed",
					observability.Error(err),
					observability.String(observability.AttrLLMModel, model),
					observability.Duration(observability.AttrDuration, elapsed),
				)
				return nil, err
			}

			provider.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
				observability.String(observability.AttrStatus, "success"),
				observability.String(observability.AttrLLMModel, model),
			)

			logAttrs := []observability.Attribute{
				observability.String(observability.AttrLLMModel, model),
				observability.String(observability.AttrLLMFinishReason, response.FinishReason),
				observability.Duration(observability.AttrDuration, elapsed),
				observability.Int(observability.AttrClientToolCalls, len(response.ToolCalls)),
			}
			if usage := response.Usage; usage != nil {
				provider.Counter(observability.MetricClientTokensTotal).Add(ctx, int64(usage.TotalTokens),
					observability.String(observability.AttrLLMModel, model),
				)
				tokens := []observability.Attribute{
					observability.Int(observability.AttrLLMTokensPrompt, usage.PromptTokens),
					observability.Int(observability.AttrLLMTokensCompletion, usage.CompletionTokens),
					observability.Int(observability.AttrLLMTokensTotal, usage.TotalTokens),
				}
				span.SetAttributes(tokens...)
				logAttrs = append(logAttrs, tokens...)
			}
			if response.Content != "" {
				logAttrs = append(logAttrs,
					observability.String(observability.AttrResponseContent, observability.TruncateString(response.Content, 100)),
				)
			}

			provider.Info(ctx, "llm request completed", logAttrs...)
			span.SetStatus(observability.StatusOK, "")
			return response, nil
		}
	}
}
