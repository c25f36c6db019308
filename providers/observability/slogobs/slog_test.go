package slogobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/aiflow/providers/observability"
)

func TestParseLevel(testCase *testing.T) {
	cases := map[string]struct {
		level slog.Level
		ok    bool
	}{
		"trace":   {LevelTrace, true},
		"DEBUG":   {slog.LevelDebug, true},
		"":        {slog.LevelInfo, true},
		"warning": {slog.LevelWarn, true},
		" error ": {slog.LevelError, true},
		"loud":    {slog.LevelInfo, false},
	}
	for name, tc := range cases {
		level, ok := ParseLevel(name)
		assert.Equal(testCase, tc.level, level, name)
		assert.Equal(testCase, tc.ok, ok, name)
	}
}

func TestParseFormat(testCase *testing.T) {
	assert.Equal(testCase, FormatJSON, ParseFormat("JSON"))
	assert.Equal(testCase, FormatPretty, ParseFormat("pretty"))
	assert.Equal(testCase, FormatCompact, ParseFormat("xml"))
}

func TestDefaultConfig_Env(testCase *testing.T) {
	testCase.Setenv("AIFLOW_LOG_LEVEL", "debug")
	testCase.Setenv("LOG_LEVEL", "error")
	testCase.Setenv("AIFLOW_LOG_FORMAT", "")
	testCase.Setenv("LOG_FORMAT", "json")

	cfg := defaultConfig()
	assert.Equal(testCase, slog.LevelDebug, cfg.level)
	assert.Equal(testCase, FormatJSON, cfg.format)
}

func TestObserver_CompactOutput(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(WithOutput(&buffer), WithFormat(FormatCompact), WithLevel(slog.LevelInfo))

	observer.Info(context.Background(), "graph run started", observability.String("graph.run.id", "r1"), observability.Int("b", 2))
	observer.Debug(context.Background(), "hidden")

	output := buffer.String()
	assert.Contains(testCase, output, ` INFO graph run started {"b":2,"graph.run.id":"r1"}`)
	assert.NotContains(testCase, output, "hidden")
	assert.Equal(testCase, 1, strings.Count(output, "\n"))
}

func TestObserver_PrettyOutput(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(WithOutput(&buffer), WithFormat(FormatPretty), WithLevel(slog.LevelInfo))

	observer.Warn(context.Background(), "careful", observability.String("a", "1"), observability.String("z", "2"))

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.Len(testCase, lines, 3)
	assert.Contains(testCase, lines[0], " WARN careful")
	assert.Contains(testCase, lines[1], "├─ a: 1")
	assert.Contains(testCase, lines[2], "└─ z: 2")
}

func TestObserver_JSONSpans(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(WithOutput(&buffer), WithFormat(FormatJSON), WithLevel(LevelTrace))

	_, span := observer.StartSpan(context.Background(), "graph.run", observability.String("graph.run.id", "r1"))
	span.SetAttributes(observability.Int("graph.steps", 3))
	span.RecordError(errors.New("boom"))
	span.SetStatus(observability.StatusError, "failed")
	span.End()

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.Len(testCase, lines, 3)

	var ended map[string]any
	require.NoError(testCase, json.Unmarshal([]byte(lines[2]), &ended))
	assert.Equal(testCase, "span ended", ended["msg"])
	assert.Equal(testCase, "DEBUG", ended["level"])
	assert.Equal(testCase, "error", ended["status"])
	assert.Equal(testCase, float64(3), ended["graph.steps"])
}

func TestObserver_Counters(testCase *testing.T) {
	observer := New(WithOutput(&bytes.Buffer{}))

	observer.Counter("nodes").Add(context.Background(), 2)
	observer.Counter("nodes").Add(context.Background(), 3)
	observer.Histogram("latency").Record(context.Background(), 0.5)

	assert.Equal(testCase, int64(5), observer.CounterValue("nodes"))
	assert.Zero(testCase, observer.CounterValue("other"))
}

func TestHandler_GroupsAndAttrs(testCase *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(NewHandler(&buffer, FormatCompact, slog.LevelInfo, false)).
		With("service", "aiflow").
		WithGroup("graph")

	logger.Info("run", "step", 1)

	assert.Contains(testCase, buffer.String(), `{"graph.step":1,"service":"aiflow"}`)
}
