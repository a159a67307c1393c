package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leofalp/polprofile/core/overview"
	"github.com/leofalp/polprofile/internal/jsonschema"
	"github.com/leofalp/polprofile/providers/ai"
	"github.com/leofalp/polprofile/providers/tool"
)

const defaultMaxToolCallIterations = 3

var (
	// ErrNilProvider is returned by New when no provider is given.
	ErrNilProvider = errors.New("client: provider is nil")

	// ErrToolIterationsExceeded is returned when the model keeps requesting
	// tools after the configured number of tool rounds.
	ErrToolIterationsExceeded = errors.New("client: tool call iterations exceeded")

	// ErrUnknownTool is returned when a call enables a tool that is neither
	// built in nor registered with WithTools.
	ErrUnknownTool = errors.New("client: unknown tool")
)

// ClientOptions holds the construction-time configuration of a [Client].
type ClientOptions struct {
	DefaultModel          string
	SystemPrompt          string
	DefaultOutputSchema   *jsonschema.Schema
	Tools                 []tool.GenericTool
	MaxToolCallIterations int
	Middlewares           []MiddlewareConfig
}

// WithDefaultModel sets the model used when a call does not override it.
func WithDefaultModel(model string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.DefaultModel = model
	}
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.SystemPrompt = prompt
	}
}

// WithDefaultOutputSchema applies schema to every request that does not set
// its own with [WithOutputSchema].
func WithDefaultOutputSchema(schema *jsonschema.Schema) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.DefaultOutputSchema = schema
	}
}

// WithTools registers locally executed tools. They are only advertised to the
// model on calls that enable them with [WithEnabledTools].
func WithTools(tools ...tool.GenericTool) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Tools = append(o.Tools, tools...)
	}
}

// WithMaxToolCallIterations bounds how many tool rounds a single SendMessage
// may run before giving up with [ErrToolIterationsExceeded].
func WithMaxToolCallIterations(n int) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.MaxToolCallIterations = n
	}
}

// WithMiddleware appends middlewares to the send chain. The first one given is
// the outermost.
func WithMiddleware(middlewares ...MiddlewareConfig) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Middlewares = append(o.Middlewares, middlewares...)
	}
}

// Client sends single-turn requests to a provider, running the local tool
// loop when the model asks for a registered tool. A Client keeps no
// conversation state between calls and is safe for concurrent use.
type Client struct {
	provider  ai.Provider
	options   ClientOptions
	catalog   *tool.Catalog
	sendChain SendFunc
}

// New creates a Client for provider.
//
// Example:
//
//	c, err := client.New(provider,
//	    client.WithDefaultModel("gemini-2.5-flash"),
//	    client.WithTools(fetchTool),
//	    client.WithMiddleware(middleware.NewRetryMiddleware(middleware.RetryConfig{})),
//	)
func New(provider ai.Provider, opts ...func(*ClientOptions)) (*Client, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	options := ClientOptions{MaxToolCallIterations: defaultMaxToolCallIterations}
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxToolCallIterations <= 0 {
		options.MaxToolCallIterations = defaultMaxToolCallIterations
	}
	for i, mw := range options.Middlewares {
		if mw.Send == nil {
			return nil, fmt.Errorf("client: middleware %d has a nil Send function", i)
		}
	}

	return &Client{
		provider:  provider,
		options:   options,
		catalog:   tool.NewCatalog(options.Tools...),
		sendChain: buildSendChain(provider, options.Middlewares),
	}, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() ai.Provider {
	return c.provider
}

type sendMessageOptions struct {
	model        string
	systemPrompt string
	outputSchema *jsonschema.Schema
	temperature  *float32
	enabledTools []string
	usageLabel   string
	onUsage      func(model string, usage *ai.Usage)
}

// SendMessageOption customises a single SendMessage call.
type SendMessageOption func(*sendMessageOptions)

// WithModel overrides the default model for one call.
func WithModel(model string) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.model = model
	}
}

// WithEphemeralSystemPrompt replaces the client's system prompt for one call.
func WithEphemeralSystemPrompt(prompt string) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.systemPrompt = prompt
	}
}

// WithOutputSchema asks the provider for JSON matching schema.
func WithOutputSchema(schema *jsonschema.Schema) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.outputSchema = schema
	}
}

// WithTemperature sets the sampling temperature for one call.
func WithTemperature(temperature float32) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.temperature = &temperature
	}
}

// WithEnabledTools advertises the named tools on this call. Names may refer
// to provider built-ins such as [ai.ToolGoogleSearch] or to tools registered
// with [WithTools].
func WithEnabledTools(names ...string) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.enabledTools = append(o.enabledTools, names...)
	}
}

// WithUsageLabel attributes the call's token usage to label in the run's
// [overview.Overview].
func WithUsageLabel(label string) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.usageLabel = label
	}
}

// WithUsageCallback calls fn with the model and token usage of every
// provider round of the call, tool rounds included. fn runs on the calling
// goroutine.
func WithUsageCallback(fn func(model string, usage *ai.Usage)) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.onUsage = fn
	}
}

// SendMessage sends prompt as a single user turn. When the model requests
// local tools they are executed and their results fed back, for at most
// MaxToolCallIterations rounds. Token usage is reported to the
// [overview.Overview] found in ctx, if any.
func (c *Client) SendMessage(ctx context.Context, prompt string, opts ...SendMessageOption) (*ai.ChatResponse, error) {
	callOptions := sendMessageOptions{
		model:        c.options.DefaultModel,
		systemPrompt: c.options.SystemPrompt,
		outputSchema: c.options.DefaultOutputSchema,
	}
	for _, opt := range opts {
		opt(&callOptions)
	}

	tools, err := c.resolveTools(callOptions.enabledTools)
	if err != nil {
		return nil, err
	}

	request := ai.ChatRequest{
		Model:        callOptions.model,
		SystemPrompt: callOptions.systemPrompt,
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: prompt}},
		Tools:        tools,
	}
	if callOptions.outputSchema != nil {
		request.ResponseFormat = &ai.ResponseFormat{OutputSchema: callOptions.outputSchema}
	}
	if callOptions.temperature != nil {
		request.GenerationConfig = &ai.GenerationConfig{Temperature: callOptions.temperature}
	}

	runOverview := overview.FromContext(ctx)

	for iteration := 0; ; iteration++ {
		response, err := c.sendChain(ctx, request)
		if err != nil {
			return nil, err
		}
		if runOverview != nil {
			runOverview.IncludeUsage(callOptions.usageLabel, response.Usage)
		}
		if callOptions.onUsage != nil && response.Usage != nil {
			callOptions.onUsage(response.Model, response.Usage)
		}

		localCalls := c.localToolCalls(response.ToolCalls)
		if len(localCalls) == 0 {
			return response, nil
		}
		if iteration >= c.options.MaxToolCallIterations {
			return response, fmt.Errorf("%w: %d rounds", ErrToolIterationsExceeded, c.options.MaxToolCallIterations)
		}
		if runOverview != nil {
			runOverview.AddToolCalls(localCalls)
		}

		request.Messages = append(request.Messages, ai.Message{
			Role:      ai.RoleAssistant,
			Content:   response.Content,
			ToolCalls: localCalls,
		})
		for _, call := range localCalls {
			request.Messages = append(request.Messages, c.executeTool(ctx, call))
		}
	}
}

// resolveTools maps enabled names to tool descriptions.
func (c *Client) resolveTools(names []string) ([]ai.ToolDescription, error) {
	var descriptions []ai.ToolDescription
	for _, name := range names {
		if ai.IsBuiltinTool(name) {
			descriptions = append(descriptions, ai.ToolDescription{Name: name})
			continue
		}
		registered, ok := c.catalog.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
		}
		descriptions = append(descriptions, registered.ToolInfo())
	}
	return descriptions, nil
}

// localToolCalls drops calls to provider built-ins, which the provider
// resolves itself.
func (c *Client) localToolCalls(calls []ai.ToolCall) []ai.ToolCall {
	var local []ai.ToolCall
	for _, call := range calls {
		if !ai.IsBuiltinTool(call.Function.Name) {
			local = append(local, call)
		}
	}
	return local
}

// executeTool runs one tool call. Failures are reported to the model as a
// ToolResult instead of aborting the request.
func (c *Client) executeTool(ctx context.Context, call ai.ToolCall) ai.Message {
	message := ai.Message{
		Role:       ai.RoleTool,
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	}

	var result ai.ToolResult
	registered, ok := c.catalog.Get(call.Function.Name)
	if !ok {
		result = ai.NewToolResultError("tool_not_found", fmt.Sprintf("tool %q is not available", call.Function.Name))
	} else if output, err := registered.Call(ctx, call.Function.Arguments); err != nil {
		slog.WarnContext(ctx, "tool call failed", "tool", call.Function.Name, "error", err)
		result = ai.NewToolResultError("tool_error", err.Error())
	} else {
		result = ai.NewToolResultSuccess(json.RawMessage(output))
	}

	content, err := result.ToJSON()
	if err != nil {
		content = fmt.Sprintf(`{"success":false,"error":"encoding_error","message":%q}`, err.Error())
	}
	message.Content = content
	return message
}
