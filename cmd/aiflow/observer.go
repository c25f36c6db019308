package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leofalp/aiflow/internal/config"
	"github.com/leofalp/aiflow/internal/tracing"
	"github.com/leofalp/aiflow/providers/observability"
	"github.com/leofalp/aiflow/providers/observability/otelobs"
	"github.com/leofalp/aiflow/providers/observability/slogobs"
	"github.com/leofalp/aiflow/providers/observability/zapobs"
)

// newObserver builds the sink selected by cfg.LogSink. With an OTLP endpoint
// configured, spans are also exported through an otel observer.
func newObserver(ctx context.Context, cfg *config.Config) (observability.Provider, func(), error) {
	level, _ := slogobs.ParseLevel(cfg.LogLevel)
	noop := func() {}

	var logSink observability.Provider
	var zapLogger *zap.Logger
	switch cfg.LogSink {
	case config.SinkZap:
		zapConfig := zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel(cfg.LogLevel))
		logger, err := zapConfig.Build()
		if err != nil {
			return nil, noop, fmt.Errorf("build zap logger: %w", err)
		}
		zapLogger = logger
		logSink = zapobs.New(logger)
	default:
		logSink = slogobs.New(slogobs.WithLevel(level))
	}

	if cfg.OTLPEndpoint == "" {
		if cfg.LogSink == config.SinkOtel {
			return otelobs.New(otelobs.WithLogger(logSink)), noop, nil
		}
		return logSink, syncer(zapLogger), nil
	}

	tracingConfig := tracing.DefaultConfig("aiflow")
	tracingConfig.ServiceVersion = version
	tracingConfig.OTLPEndpoint = cfg.OTLPEndpoint
	provider, err := tracing.Setup(ctx, tracingConfig, zapLogger)
	if err != nil {
		return nil, noop, err
	}

	shutdown := func() {
		_ = tracing.Shutdown(provider, zapLogger)
		syncer(zapLogger)()
	}
	if cfg.LogSink == config.SinkOtel {
		return otelobs.New(otelobs.WithTracerProvider(provider), otelobs.WithLogger(logSink)), shutdown, nil
	}
	return observability.Multi(logSink, otelobs.New(otelobs.WithTracerProvider(provider))), shutdown, nil
}

func syncer(logger *zap.Logger) func() {
	return func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}
}

func zapLevel(name string) zapcore.Level {
	if strings.EqualFold(strings.TrimSpace(name), "trace") {
		return zapobs.TraceLevel
	}
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
