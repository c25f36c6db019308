package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/providers/ai"
)

// NewTimeoutMiddleware bounds every provider call by timeout. A shorter
// deadline already on the context still wins. A non-positive timeout
// disables the middleware.
func NewTimeoutMiddleware(timeout time.Duration) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		if timeout <= 0 {
			return next
		}
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			response, err := next(callCtx, request)
			if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("llm call exceeded %s: %w", timeout, err)
			}
			return response, err
		}
	}
}
