// Package middleware provides the built-in [client.Middleware] wrappers.
//
// [NewRetryMiddleware] retries transient failures (429, 5xx) on an
// exponential schedule from github.com/cenkalti/backoff/v5 and honours
// Retry-After. [NewTimeoutMiddleware] bounds each provider call and
// [NewLoggingMiddleware] reports calls through an observability.Logger.
//
// Middlewares run outermost-first in the order given to client.WithMiddleware:
//
//	model, err := client.New(provider,
//	    client.WithMiddleware(
//	        middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 3, Logger: observer}),
//	        middleware.NewTimeoutMiddleware(30*time.Second),
//	        middleware.NewLoggingMiddleware(observer, middleware.LogLevelStandard),
//	    ),
//	)
//
// Here every attempt gets its own 30s budget.
package middleware
