package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap/zaptest"
)

func TestDefaultConfig(testCase *testing.T) {
	config := DefaultConfig("aiflow")

	assert.Equal(testCase, "aiflow", config.ServiceName)
	assert.Equal(testCase, "127.0.0.1:4318", config.OTLPEndpoint)
	assert.Equal(testCase, 1.0, config.SampleRatio)
}

func TestSampler(testCase *testing.T) {
	assert.Equal(testCase, "AlwaysOnSampler", sampler(1).Description())
	assert.Equal(testCase, "AlwaysOffSampler", sampler(0).Description())
	assert.Equal(testCase, "TraceIDRatioBased{0.5}", sampler(0.5).Description())
}

func TestSetupAndShutdown(testCase *testing.T) {
	// No collector is needed: the exporter connects lazily and no span is
	// recorded before shutdown.
	provider, err := Setup(context.Background(), DefaultConfig("aiflow-test"), zaptest.NewLogger(testCase))
	require.NoError(testCase, err)
	assert.Same(testCase, provider, otel.GetTracerProvider())

	assert.NoError(testCase, Shutdown(provider, nil))
}
