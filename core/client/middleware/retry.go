package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/internal/utils"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/observability"
)

// RetryConfig tunes [NewRetryMiddleware]. Zero values take the defaults
// noted on each field.
type RetryConfig struct {
	// MaxRetries after the first failure. Default 3; negative disables
	// retrying.
	MaxRetries int

	// InitialBackoff before the first retry. Default 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Default 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier. Default 2.
	BackoffFactor float64

	// JitterFraction randomizes each wait by plus or minus this fraction.
	// Default 0.1.
	JitterFraction float64

	// RetryableFunc decides whether an error is retried. The default retries
	// errors reporting Retryable() true and falls back to matching 429/5xx
	// status codes in the message.
	RetryableFunc func(error) bool

	// Logger receives a warning before every wait. When nil the observer
	// carried by the request context is used, if any.
	Logger observability.Logger
}

type retryable interface {
	Retryable() bool
}

func defaultRetryableFunc(err error) bool {
	if err == nil {
		return false
	}
	var typed retryable
	if errors.As(err, &typed) {
		return typed.Retryable()
	}

	msg := err.Error()
	for _, code := range []string{"429", "500", "502", "503", "529"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

func (config *RetryConfig) applyDefaults() {
	switch {
	case config.MaxRetries == 0:
		config.MaxRetries = 3
	case config.MaxRetries < 0:
		config.MaxRetries = 0
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = defaultRetryableFunc
	}
}

// newBackOff builds a fresh exponential schedule. Each request gets its own
// because the schedule is stateful.
func (config RetryConfig) newBackOff() *backoff.ExponentialBackOff {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = config.InitialBackoff
	schedule.MaxInterval = config.MaxBackoff
	schedule.Multiplier = config.BackoffFactor
	schedule.RandomizationFactor = config.JitterFraction
	schedule.Reset()
	return schedule
}

// NewRetryMiddleware retries failed requests with exponential backoff. A
// server-provided Retry-After delay replaces the computed wait. On
// exhaustion the error wraps both [ErrRetryExhausted] and the last provider
// error; non-retryable errors are returned untouched.
func NewRetryMiddleware(config RetryConfig) client.Middleware {
	config.applyDefaults()

	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			var lastErr error
			permanent := false

			operation := func() (*ai.ChatResponse, error) {
				response, err := next(ctx, request)
				if err == nil {
					return response, nil
				}
				lastErr = err
				if !config.RetryableFunc(err) {
					permanent = true
					return nil, backoff.Permanent(err)
				}
				var statusErr *utils.StatusError
				if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
					return nil, backoff.RetryAfter(retryAfterSeconds(statusErr.RetryAfter))
				}
				return nil, err
			}

			response, err := backoff.Retry(ctx, operation,
				backoff.WithBackOff(config.newBackOff()),
				backoff.WithMaxTries(uint(config.MaxRetries+1)),
				backoff.WithMaxElapsedTime(0),
				backoff.WithNotify(func(_ error, wait time.Duration) {
					logRetry(ctx, config.Logger, request, lastErr, wait)
				}),
			)
			switch {
			case err == nil:
				return response, nil
			case permanent:
				return nil, lastErr
			case ctx.Err() != nil:
				return nil, interrupted(context.Cause(ctx), lastErr)
			default:
				return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
			}
		}
	}
}

// retryAfterSeconds rounds delay up to whole seconds, so a sub-second
// Retry-After still waits.
func retryAfterSeconds(delay time.Duration) int {
	return int((delay + time.Second - 1) / time.Second)
}

func interrupted(cause, lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("retry interrupted: %w", cause)
	}
	return fmt.Errorf("retry interrupted: %w (last error: %w)", cause, lastErr)
}

func logRetry(ctx context.Context, logger observability.Logger, request ai.ChatRequest, cause error, wait time.Duration) {
	if logger == nil {
		provider := observability.ObserverFromContext(ctx)
		if provider == nil {
			return
		}
		logger = provider
	}
	logger.Warn(ctx, "llm call retry scheduled",
		observability.String(observability.AttrLLMModel, request.Model),
		observability.Duration("retry.wait", wait),
		observability.Error(cause),
	)
}
