package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/leofalp/aiflow/providers/observability"
)

// StatusError is returned by [PostJSON] for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string

	// RetryAfter is the delay requested by the server's Retry-After header,
	// zero when absent or not expressed in seconds.
	RetryAfter time.Duration
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", err.StatusCode, observability.TruncateStringDefault(err.Body))
}

// Retryable reports whether the request may succeed when repeated.
func (err *StatusError) Retryable() bool {
	return err.StatusCode == http.StatusTooManyRequests || err.StatusCode >= http.StatusInternalServerError
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// retryAfter parses a Retry-After header given in delta-seconds.
func retryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// PostJSON sends body as JSON to url with the given headers and decodes the
// 2xx response into Output. Request events are added to the span found in ctx.
func PostJSON[Output any](ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (*Output, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	requestStart := time.Now()
	res, err := httpClient.Do(req)
	requestDuration := time.Since(requestStart)
	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			if logger := observability.ObserverFromContext(ctx); logger != nil {
				logger.Warn(ctx, "failed to close response body", observability.Error(closeErr), observability.String(observability.AttrHTTPURL, url))
				return
			}
			slog.Warn("failed to close response body", "error", closeErr.Error(), "url", url)
		}
	}()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, res.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: res.StatusCode,
			Body:       string(respBody),
			RetryAfter: retryAfter(res.Header.Get("Retry-After")),
		}
	}

	var output Output
	if err = json.Unmarshal(respBody, &output); err != nil {
		return nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s",
			res.StatusCode, err, observability.TruncateStringDefault(string(respBody)))
	}
	return &output, nil
}
