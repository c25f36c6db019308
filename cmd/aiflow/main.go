package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/leofalp/aiflow/core/client"
	"github.com/leofalp/aiflow/core/client/middleware"
	"github.com/leofalp/aiflow/core/cost"
	"github.com/leofalp/aiflow/core/overview"
	"github.com/leofalp/aiflow/internal/config"
	"github.com/leofalp/aiflow/patterns/graph"
	"github.com/leofalp/aiflow/patterns/workflows"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/ai/anthropic"
	"github.com/leofalp/aiflow/providers/ai/openai"
	"github.com/leofalp/aiflow/providers/observability"
	"github.com/leofalp/aiflow/providers/tool"
	"github.com/leofalp/aiflow/providers/tool/calculator"
	"github.com/leofalp/aiflow/providers/tool/webfetch"
)

// cliFlags holds the parsed command line.
type cliFlags struct {
	Workflow  string
	Input     string
	ConfigDir string
	Mermaid   bool
	List      bool
	Verbose   bool
}

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var flags cliFlags

	fs := flag.NewFlagSet("aiflow", flag.ContinueOnError)
	fs.StringVar(&flags.Workflow, "workflow", "chaining", "workflow to run: "+strings.Join(workflows.Names(), ", "))
	fs.StringVar(&flags.Input, "input", "", "input of the workflow (topic or request)")
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory holding aiflow.yaml and .env")
	fs.BoolVar(&flags.Mermaid, "mermaid", false, "print the workflow as a Mermaid flowchart and exit")
	fs.BoolVar(&flags.List, "list", false, "list the available workflows and exit")
	fs.BoolVar(&flags.Verbose, "verbose", false, "log prompts and replies of every model call")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.List {
		for _, name := range workflows.Names() {
			definition, _ := workflows.Lookup(name)
			fmt.Fprintf(stdout, "%-14s %s\n", name, definition.Description)
		}
		return nil
	}

	definition, ok := workflows.Lookup(flags.Workflow)
	if !ok {
		return fmt.Errorf("unknown workflow %q (available: %s)", flags.Workflow, strings.Join(workflows.Names(), ", "))
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	observer, shutdown, err := newObserver(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	model, err := newModel(cfg, observer, flags.Verbose)
	if err != nil {
		return err
	}

	opts := append(cfg.GraphOptions(), graph.WithObserver(observer))
	compiled, err := definition.Build(model, defaultTools(), opts...)
	if err != nil {
		return fmt.Errorf("build workflow %s: %w", definition.Name, err)
	}

	if flags.Mermaid {
		_, err := fmt.Fprintln(stdout, compiled.Mermaid())
		return err
	}
	if strings.TrimSpace(flags.Input) == "" {
		return errors.New("-input is required")
	}

	workflowRun, err := compiled.NewRun(map[string]any{definition.InputField: flags.Input})
	if err != nil {
		return err
	}
	tracker := overview.New()
	state, err := workflowRun.Execute(tracker.ToContext(ctx))
	if err != nil {
		return fmt.Errorf("run %s: %w", workflowRun.ID(), err)
	}

	var pricing *cost.ModelCost
	if modelCost, ok := cost.ForModel(cfg.ModelName()); ok {
		pricing = &modelCost
	}

	output := struct {
		RunID    string           `json:"run_id"`
		Workflow string           `json:"workflow"`
		Steps    int              `json:"steps"`
		Output   any              `json:"output"`
		State    graph.State      `json:"state"`
		Usage    overview.Summary `json:"usage"`
	}{
		RunID:    workflowRun.ID(),
		Workflow: definition.Name,
		Steps:    workflowRun.Steps(),
		State:    state,
		Usage:    tracker.Summary(pricing),
	}
	output.Output = definition.Output(state)

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// newModel builds the provider adapter and wraps it in a client with retry
// and per-attempt timeout middleware.
func newModel(cfg *config.Config, observer observability.Provider, verbose bool) (*client.Client, error) {
	var provider ai.Provider
	switch cfg.Provider {
	case config.ProviderOpenAI:
		provider = openai.New()
	default:
		provider = anthropic.New()
	}
	if key := cfg.APIKey(); key != "" {
		provider = provider.WithAPIKey(key)
	}

	middlewares := []client.Middleware{
		middleware.NewRetryMiddleware(middleware.RetryConfig{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: time.Second,
			Logger:         observer,
		}),
		middleware.NewTimeoutMiddleware(cfg.RequestTimeout),
	}
	if verbose {
		middlewares = append(middlewares, middleware.NewLoggingMiddleware(observer, middleware.LogLevelVerbose))
	}

	return client.New(provider,
		client.WithModel(cfg.ModelName()),
		client.WithObserver(observer),
		client.WithMiddleware(middlewares...),
	)
}

func defaultTools() []tool.GenericTool {
	return []tool.GenericTool{
		calculator.NewMultiplyTool(),
		calculator.NewCalculatorTool(),
		webfetch.NewWebFetchTool(),
	}
}
