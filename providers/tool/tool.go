package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leofalp/aiflow/core/parse"
	"github.com/leofalp/aiflow/internal/jsonschema"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/observability"
)

// Tool binds a name and description to a typed Go function. Schemas for I
// and O are derived by reflection; use [NewTool] to construct one.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Output      *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)
}

// GenericTool erases the type parameters of [Tool] so tools can be stored
// and dispatched by name.
type GenericTool interface {
	// ToolInfo describes the tool to a provider.
	ToolInfo() ai.ToolDescription

	// Call runs the tool with JSON input and returns JSON output.
	Call(ctx context.Context, inputJson string) (string, error)
}

type funcToolOptions struct {
	Description string
}

// WithDescription sets the description the model sees when deciding whether
// to call the tool.
func WithDescription(description string) func(tool *funcToolOptions) {
	return func(s *funcToolOptions) {
		s.Description = description
	}
}

// NewTool constructs a [Tool]. It fails when I or O cannot be described as
// JSON Schema.
//
//	search, err := tool.NewTool("search", searchFunc,
//	    tool.WithDescription("Searches the web for a query."),
//	)
func NewTool[I, O any](name string, function func(ctx context.Context, input I) (O, error), options ...func(tool *funcToolOptions)) (*Tool[I, O], error) {
	toolOptions := &funcToolOptions{}
	for _, option := range options {
		option(toolOptions)
	}

	parameters, err := jsonschema.For[I]()
	if err != nil {
		return nil, fmt.Errorf("tool %s: input schema: %w", name, err)
	}
	output, err := jsonschema.For[O]()
	if err != nil {
		return nil, fmt.Errorf("tool %s: output schema: %w", name, err)
	}

	return &Tool[I, O]{
		Name:        name,
		Description: toolOptions.Description,
		Parameters:  parameters,
		Output:      output,
		Function:    function,
	}, nil
}

// MustTool is [NewTool] for package-level tool definitions; it panics on
// schema errors.
func MustTool[I, O any](name string, function func(ctx context.Context, input I) (O, error), options ...func(tool *funcToolOptions)) *Tool[I, O] {
	newTool, err := NewTool(name, function, options...)
	if err != nil {
		panic(err)
	}
	return newTool
}

func (t *Tool[I, O]) ToolInfo() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Call decodes inputJson leniently into I, runs the function and encodes
// the result. Execution events are added to the span found in ctx.
func (t *Tool[I, O]) Call(ctx context.Context, inputJson string) (string, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventToolExecutionStart,
			observability.String(observability.AttrToolName, t.Name),
			observability.String(observability.AttrToolInput, observability.TruncateStringDefault(inputJson)),
		)
		defer span.AddEvent(observability.EventToolExecutionEnd)
	}

	start := time.Now()

	parsedInput, err := parse.ParseStringAs[I](inputJson)
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return "", fmt.Errorf("tool %s: invalid input: %w", t.Name, err)
	}

	output, err := t.Function(ctx, parsedInput)
	duration := time.Since(start)
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetAttributes(observability.Duration(observability.AttrDuration, duration))
		}
		return "", err
	}

	outputBytes, err := json.Marshal(output)
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return "", fmt.Errorf("tool %s: encode output: %w", t.Name, err)
	}

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrToolOutput, observability.TruncateStringDefault(string(outputBytes))),
			observability.Duration(observability.AttrDuration, duration),
		)
	}
	return string(outputBytes), nil
}
