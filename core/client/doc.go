// Package client sits between the LLM providers and the workflow patterns.
//
// [Client] implements [Model], the capability workflow nodes depend on:
// plain invocation, structured output decoded into a Go value, and tool
// binding. Requests pass through a middleware chain (see the middleware
// sub-package for retry, timeout and logging) wrapped by an observability
// layer that reports to the configured or context-carried observer.
//
//	model, err := client.New(anthropic.New(),
//	    client.WithModel("claude-sonnet-4-5"),
//	    client.WithMiddleware(middleware.NewRetryMiddleware(middleware.RetryConfig{})),
//	)
//	joke, err := model.Prompt(ctx, "Write a short joke about cats")
package client
