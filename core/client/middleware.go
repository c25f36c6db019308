package client

import (
	"context"

	"github.com/leofalp/aiflow/providers/ai"
)

// SendFunc sends a chat request to the provider. It is the unit threaded
// through the middleware chain.
type SendFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error)

// Middleware wraps the next SendFunc in the chain. The first middleware
// passed to [WithMiddleware] is the outermost wrapper.
type Middleware func(next SendFunc) SendFunc

// buildSendChain wraps the provider call with middlewares, applied in
// reverse so that middlewares[0] runs first.
func buildSendChain(provider ai.Provider, middlewares []Middleware) SendFunc {
	var chain SendFunc = func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		return provider.SendMessage(ctx, request)
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i](chain)
	}
	return chain
}
