package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	sdk "google.golang.org/genai"

	"github.com/leofalp/polprofile/providers/ai"
)

const (
	defaultModel = "gemini-2.5-flash"
	providerName = "genai"
)

// ErrMissingCredentials is returned by New when neither an API key nor a
// Vertex AI project is configured.
var ErrMissingCredentials = errors.New("genai: API key or Vertex AI project required")

// Config selects the backend used by the SDK client.
type Config struct {
	// APIKey authenticates against the Gemini Developer API.
	APIKey string

	// Vertex routes requests through Vertex AI using application default
	// credentials; Project and Location are then required.
	Vertex   bool
	Project  string
	Location string

	// HTTPClient overrides the SDK's default transport.
	HTTPClient *http.Client
}

// GenAIProvider implements ai.Provider on top of the official Go SDK.
type GenAIProvider struct {
	client  *sdk.Client
	backend sdk.Backend
}

// New creates an SDK-backed provider.
func New(ctx context.Context, config Config) (*GenAIProvider, error) {
	clientConfig := &sdk.ClientConfig{HTTPClient: config.HTTPClient}

	switch {
	case config.Vertex:
		if config.Project == "" || config.Location == "" {
			return nil, fmt.Errorf("%w: Vertex AI needs both project and location", ErrMissingCredentials)
		}
		clientConfig.Backend = sdk.BackendVertexAI
		clientConfig.Project = config.Project
		clientConfig.Location = config.Location
	case config.APIKey != "":
		clientConfig.Backend = sdk.BackendGeminiAPI
		clientConfig.APIKey = config.APIKey
	default:
		return nil, ErrMissingCredentials
	}

	client, err := sdk.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return &GenAIProvider{client: client, backend: clientConfig.Backend}, nil
}

// Name implements ai.Provider.
func (p *GenAIProvider) Name() string {
	return providerName
}

// SendMessage implements ai.Provider.
func (p *GenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	model := request.Model
	if model == "" {
		model = defaultModel
	}

	contents, err := buildContents(request.Messages)
	if err != nil {
		return nil, err
	}
	generateConfig := buildConfig(request)

	slog.DebugContext(ctx, "genai request",
		"model", model,
		"vertex", p.backend == sdk.BackendVertexAI,
		"messages", len(request.Messages),
		"tools", len(request.Tools),
	)

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, generateConfig)
	if err != nil {
		return nil, fmt.Errorf("genai: generate content: %w", err)
	}

	result, err := responseToGeneric(resp)
	if err != nil {
		return nil, err
	}
	if result.Model == "" {
		result.Model = model
	}
	return result, nil
}

// IsStopMessage reports whether the response ends the conversation.
func (p *GenAIProvider) IsStopMessage(message *ai.ChatResponse) bool {
	if message == nil {
		return true
	}
	return len(message.ToolCalls) == 0
}
