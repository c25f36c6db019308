package middleware

import "errors"

// ErrRetryExhausted wraps the last provider error once every retry failed.
var ErrRetryExhausted = errors.New("aiflow: all retry attempts exhausted")
