package client

import (
	"context"

	"github.com/leofalp/aiflow/core/overview"
	"github.com/leofalp/aiflow/providers/ai"
)

// overviewMiddleware records every call into the overview carried by the
// context, if any.
func overviewMiddleware(next SendFunc) SendFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		response, err := next(ctx, request)
		if tracker := overview.FromContext(ctx); tracker != nil {
			tracker.Record(response, err)
		}
		return response, err
	}
}
