package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResponse struct {
	Value int `json:"value"`
}

func TestPostJSON_Success(testCase *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(testCase, http.MethodPost, request.Method)
		assert.Equal(testCase, "application/json", request.Header.Get("Content-Type"))
		assert.Equal(testCase, "secret", request.Header.Get("x-api-key"))
		assert.Empty(testCase, request.Header.Get("Authorization"))

		var body map[string]string
		assert.NoError(testCase, json.NewDecoder(request.Body).Decode(&body))
		assert.Equal(testCase, "test", body["q"])

		fmt.Fprint(writer, `{"value":42}`)
	}))
	defer server.Close()

	headers := map[string]string{"x-api-key": "secret", "Authorization": ""}
	result, err := PostJSON[echoResponse](context.Background(), server.Client(), server.URL, headers, map[string]string{"q": "test"})

	require.NoError(testCase, err)
	assert.Equal(testCase, 42, result.Value)
}

func TestPostJSON_StatusError(testCase *testing.T) {
	cases := map[string]struct {
		status    int
		retryable bool
	}{
		"bad request":  {http.StatusBadRequest, false},
		"rate limited": {http.StatusTooManyRequests, true},
		"server error": {http.StatusBadGateway, true},
	}
	for name, tc := range cases {
		testCase.Run(name, func(testCase *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(tc.status)
				fmt.Fprint(writer, "nope")
			}))
			defer server.Close()

			_, err := PostJSON[echoResponse](context.Background(), nil, server.URL, nil, struct{}{})

			var statusErr *StatusError
			require.ErrorAs(testCase, err, &statusErr)
			assert.Equal(testCase, tc.status, StatusCode(err))
			assert.Equal(testCase, tc.retryable, statusErr.Retryable())
			assert.Contains(testCase, err.Error(), "nope")
		})
	}
}

func TestPostJSON_RetryAfter(testCase *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Retry-After", "7")
		writer.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := PostJSON[echoResponse](context.Background(), nil, server.URL, nil, struct{}{})

	var statusErr *StatusError
	require.ErrorAs(testCase, err, &statusErr)
	assert.Equal(testCase, 7*time.Second, statusErr.RetryAfter)
	assert.Zero(testCase, retryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Zero(testCase, retryAfter("-3"))
}

func TestPostJSON_InvalidBody(testCase *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(writer, "not json")
	}))
	defer server.Close()

	_, err := PostJSON[echoResponse](context.Background(), server.Client(), server.URL, nil, struct{}{})

	require.Error(testCase, err)
	assert.Contains(testCase, err.Error(), "unmarshaling")
	assert.Zero(testCase, StatusCode(err))
}

func TestPostJSON_ContextCancelled(testCase *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		select {
		case <-request.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := PostJSON[echoResponse](ctx, server.Client(), server.URL, nil, struct{}{})

	require.Error(testCase, err)
	assert.ErrorIs(testCase, err, context.DeadlineExceeded)
}

func TestPostJSON_MarshalError(testCase *testing.T) {
	_, err := PostJSON[echoResponse](context.Background(), nil, "http://127.0.0.1:1", nil, make(chan int))

	assert.ErrorContains(testCase, err, "marshaling")
}
