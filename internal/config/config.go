package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/aiflow/patterns/graph"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Models used when Config.Model is empty.
const (
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Log sink names accepted in Config.LogSink.
const (
	SinkSlog = "slog"
	SinkZap  = "zap"
	SinkOtel = "otel"
)

// Config holds the process-level settings of the aiflow CLI.
type Config struct {
	Provider        string `yaml:"provider,omitempty"`
	Model           string `yaml:"model,omitempty"`
	AnthropicAPIKey string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`

	MaxConcurrency int           `yaml:"maxConcurrency,omitempty"`
	RunTimeout     time.Duration `yaml:"runTimeout,omitempty"`
	RecursionLimit int           `yaml:"recursionLimit,omitempty"`
	MergeOrder     string        `yaml:"mergeOrder,omitempty"`

	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
	MaxRetries     int           `yaml:"maxRetries,omitempty"`

	LogLevel     string `yaml:"logLevel,omitempty"`
	LogSink      string `yaml:"logSink,omitempty"`
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty"`
}

// Default returns the settings used when neither a file nor the environment
// says otherwise.
func Default() *Config {
	return &Config{
		Provider:       ProviderAnthropic,
		RecursionLimit: graph.DefaultRecursionLimit,
		MergeOrder:     string(graph.MergeTaskOrder),
		RequestTimeout: 2 * time.Minute,
		MaxRetries:     3,
		LogLevel:       "INFO",
		LogSink:        SinkSlog,
	}
}

// Load reads aiflow.yml or aiflow.yaml from dir, then dir/.env, then the
// process environment. Later sources win. Missing files are not errors.
func Load(dir string) (*Config, error) {
	cfg := Default()

	for _, name := range []string{"aiflow.yml", "aiflow.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		break
	}

	dotenv, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	lookup := func(key string) (string, bool) {
		if value := os.Getenv(key); value != "" {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	texts := map[string]*string{
		"AIFLOW_PROVIDER":      &c.Provider,
		"AIFLOW_MODEL":         &c.Model,
		"ANTHROPIC_API_KEY":    &c.AnthropicAPIKey,
		"OPENAI_API_KEY":       &c.OpenAIAPIKey,
		"AIFLOW_MERGE_ORDER":   &c.MergeOrder,
		"AIFLOW_LOG_LEVEL":     &c.LogLevel,
		"AIFLOW_LOG_SINK":      &c.LogSink,
		"AIFLOW_OTLP_ENDPOINT": &c.OTLPEndpoint,
	}
	for key, target := range texts {
		if value, ok := lookup(key); ok && value != "" {
			*target = value
		}
	}

	ints := map[string]*int{
		"AIFLOW_MAX_CONCURRENCY": &c.MaxConcurrency,
		"AIFLOW_RECURSION_LIMIT": &c.RecursionLimit,
		"AIFLOW_MAX_RETRIES":     &c.MaxRetries,
	}
	for key, target := range ints {
		value, ok := lookup(key)
		if !ok || value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*target = parsed
	}

	durations := map[string]*time.Duration{
		"AIFLOW_RUN_TIMEOUT":     &c.RunTimeout,
		"AIFLOW_REQUEST_TIMEOUT": &c.RequestTimeout,
	}
	for key, target := range durations {
		value, ok := lookup(key)
		if !ok || value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	switch c.LogSink {
	case SinkSlog, SinkZap, SinkOtel:
	default:
		errs = append(errs, fmt.Errorf("unknown log sink %q", c.LogSink))
	}
	switch graph.MergeOrder(c.MergeOrder) {
	case graph.MergeTaskOrder, graph.MergeCompletionOrder:
	default:
		errs = append(errs, fmt.Errorf("unknown merge order %q", c.MergeOrder))
	}
	if c.MaxConcurrency < 0 {
		errs = append(errs, errors.New("maxConcurrency must not be negative"))
	}
	if c.RecursionLimit < 0 {
		errs = append(errs, errors.New("recursionLimit must not be negative"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("maxRetries must not be negative"))
	}
	if c.RunTimeout < 0 || c.RequestTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

// ModelName returns Model or the default model of the selected provider.
func (c *Config) ModelName() string {
	switch {
	case c.Model != "":
		return c.Model
	case c.Provider == ProviderOpenAI:
		return DefaultOpenAIModel
	default:
		return DefaultAnthropicModel
	}
}

// GraphOptions converts the engine settings into graph options. A zero
// recursion limit keeps the engine default.
func (c *Config) GraphOptions() []graph.Option {
	opts := []graph.Option{
		graph.WithMaxConcurrency(c.MaxConcurrency),
		graph.WithRunTimeout(c.RunTimeout),
	}
	if c.RecursionLimit > 0 {
		opts = append(opts, graph.WithRecursionLimit(c.RecursionLimit))
	}
	if c.MergeOrder != "" {
		opts = append(opts, graph.WithMergeOrder(graph.MergeOrder(c.MergeOrder)))
	}
	return opts
}
