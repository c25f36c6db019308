package client

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/leofalp/aiflow/core/parse"
	"github.com/leofalp/aiflow/internal/jsonschema"
	"github.com/leofalp/aiflow/providers/ai"
	"github.com/leofalp/aiflow/providers/observability"
	"github.com/leofalp/aiflow/providers/tool"
)

// Model is what workflow nodes depend on: a stateless call into an LLM,
// optionally constrained to a structured output or bound to tools.
type Model interface {
	// Invoke sends the conversation and returns the model's reply.
	Invoke(ctx context.Context, messages ...ai.Message) (*ai.ChatResponse, error)

	// InvokeStructured asks for a reply matching the schema of *target and
	// decodes it into target, which must be a non-nil pointer.
	InvokeStructured(ctx context.Context, target any, messages ...ai.Message) (*ai.ChatResponse, error)

	// BindTools returns a Model that offers tools to the LLM. The receiver
	// is not modified.
	BindTools(tools ...tool.GenericTool) Model
}

// ClientOptions is filled by the With* options passed to [New].
type ClientOptions struct {
	Model            string
	SystemPrompt     string
	Tools            []tool.GenericTool
	Middlewares      []Middleware
	Observer         observability.Provider
	GenerationConfig *ai.GenerationConfig
}

func WithModel(model string) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.Model = model
	}
}

func WithSystemPrompt(prompt string) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.SystemPrompt = prompt
	}
}

func WithTools(tools ...tool.GenericTool) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.Tools = append(options.Tools, tools...)
	}
}

// WithMiddleware appends middlewares to the send chain. The first one given
// is the outermost.
func WithMiddleware(middlewares ...Middleware) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.Middlewares = append(options.Middlewares, middlewares...)
	}
}

// WithObserver traces every request through observer. Without it the client
// uses the observer found in the request context, if any.
func WithObserver(observer observability.Provider) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.Observer = observer
	}
}

func WithGenerationConfig(config ai.GenerationConfig) func(*ClientOptions) {
	return func(options *ClientOptions) {
		options.GenerationConfig = &config
	}
}

// Client implements [Model] over an [ai.Provider]. It holds no conversation
// state, so one Client can serve concurrent graph nodes.
type Client struct {
	provider ai.Provider
	options  ClientOptions
	catalog  *tool.Catalog
	send     SendFunc
}

// New builds a Client. The observability and overview middlewares are always
// the outermost wrappers so they see the outcome after retries and timeouts.
func New(provider ai.Provider, opts ...func(*ClientOptions)) (*Client, error) {
	if provider == nil {
		return nil, errors.New("client: provider is required")
	}

	options := ClientOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	for index, middleware := range options.Middlewares {
		if middleware == nil {
			return nil, fmt.Errorf("client: middleware %d is nil", index)
		}
	}

	middlewares := append([]Middleware{
		newObservabilityMiddleware(options.Observer, options.Model),
		overviewMiddleware,
	}, options.Middlewares...)
	return &Client{
		provider: provider,
		options:  options,
		catalog:  tool.NewCatalog(options.Tools...),
		send:     buildSendChain(provider, middlewares),
	}, nil
}

func (c *Client) Invoke(ctx context.Context, messages ...ai.Message) (*ai.ChatResponse, error) {
	return c.send(ctx, c.request(messages))
}

func (c *Client) InvokeStructured(ctx context.Context, target any, messages ...ai.Message) (*ai.ChatResponse, error) {
	targetType := reflect.TypeOf(target)
	if targetType == nil || targetType.Kind() != reflect.Pointer || reflect.ValueOf(target).IsNil() {
		return nil, fmt.Errorf("client: structured target must be a non-nil pointer, got %T", target)
	}
	schema, err := jsonschema.Generate(targetType.Elem())
	if err != nil {
		return nil, fmt.Errorf("client: output schema: %w", err)
	}

	request := c.request(messages)
	request.ResponseFormat = &ai.ResponseFormat{
		Name:         schemaName(targetType.Elem()),
		OutputSchema: schema,
	}

	response, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	if err := parse.ParseInto(response.Content, target); err != nil {
		return response, fmt.Errorf("client: structured output: %w", err)
	}
	return response, nil
}

func (c *Client) BindTools(tools ...tool.GenericTool) Model {
	bound := *c
	bound.catalog = c.catalog.Clone()
	bound.catalog.AddTools(tools...)
	return &bound
}

// Prompt sends a single user message and returns the text of the reply.
func (c *Client) Prompt(ctx context.Context, text string) (string, error) {
	response, err := c.Invoke(ctx, ai.UserMessage(text))
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// CallTools runs the requested tool calls against the bound tools. See
// [ExecuteToolCalls].
func (c *Client) CallTools(ctx context.Context, toolCalls []ai.ToolCall) ([]ai.Message, error) {
	return ExecuteToolCalls(ctx, c.catalog, toolCalls)
}

// ExecuteToolCalls runs toolCalls against catalog and returns one tool
// message per call, in order. Unknown tools and tool failures are reported
// to the model inside the message; only a cancelled context fails the call.
func ExecuteToolCalls(ctx context.Context, catalog *tool.Catalog, toolCalls []ai.ToolCall) ([]ai.Message, error) {
	messages := make([]ai.Message, 0, len(toolCalls))
	for _, call := range toolCalls {
		if err := ctx.Err(); err != nil {
			return messages, err
		}
		messages = append(messages, ai.ToolMessage(call.ID, call.Function.Name, callTool(ctx, catalog, call)))
	}
	return messages, nil
}

func callTool(ctx context.Context, catalog *tool.Catalog, call ai.ToolCall) string {
	var result ai.ToolResult
	if boundTool, ok := catalog.Get(call.Function.Name); !ok {
		result = ai.NewToolResultError("tool_not_found", fmt.Sprintf("tool %q is not available", call.Function.Name))
	} else if output, err := boundTool.Call(ctx, call.Function.Arguments); err != nil {
		result = ai.NewToolResultError("tool_execution_failed", err.Error())
	} else {
		return output
	}
	encoded, err := result.ToJSON()
	if err != nil {
		return result.Message
	}
	return encoded
}

// Tools lists the bound tool descriptions.
func (c *Client) Tools() []ai.ToolDescription {
	return c.catalog.Descriptions()
}

func (c *Client) request(messages []ai.Message) ai.ChatRequest {
	return ai.ChatRequest{
		Model:            c.options.Model,
		Messages:         slices.Clone(messages),
		SystemPrompt:     c.options.SystemPrompt,
		Tools:            c.catalog.Descriptions(),
		GenerationConfig: c.options.GenerationConfig,
	}
}

func schemaName(t reflect.Type) string {
	if t.Name() == "" {
		return "response"
	}
	return t.Name()
}
