package client

import (
	"context"

	"github.com/leofalp/aiflow/providers/ai"
)

// Structured asks model for a T and returns it decoded.
//
//	type Route struct {
//	    Step string `json:"step" jsonschema:"enum=poem,enum=story,enum=joke"`
//	}
//
//	route, err := client.Structured[Route](ctx, model, ai.UserMessage(input))
func Structured[T any](ctx context.Context, model Model, messages ...ai.Message) (T, error) {
	var result T
	if _, err := model.InvokeStructured(ctx, &result, messages...); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
