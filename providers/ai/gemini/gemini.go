package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/polprofile/internal/utils"
	"github.com/leofalp/polprofile/providers/ai"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	providerName   = "gemini"
)

// ErrMissingAPIKey is returned by SendMessage when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: API key is not set")

// GeminiProvider implements the ai.Provider interface over the Gemini REST API.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a new Gemini provider instance with default values from environment.
// Environment variables:
//   - GEMINI_API_KEY: API key for authentication (GOOGLE_API_KEY is used as a fallback)
//   - GEMINI_API_BASE_URL: Base URL for API (optional, defaults to Google's API)
func New() *GeminiProvider {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *GeminiProvider) WithAPIKey(apiKey string) *GeminiProvider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *GeminiProvider) WithBaseURL(baseURL string) *GeminiProvider {
	if baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *GeminiProvider) WithHttpClient(httpClient *http.Client) *GeminiProvider {
	p.client = httpClient
	return p
}

// Name implements ai.Provider.
func (p *GeminiProvider) Name() string {
	return providerName
}

// SendMessage implements the ai.Provider interface.
// It sends a chat request to the generateContent endpoint and maps the
// response back to the generic format.
func (p *GeminiProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := request.Model
	if model == "" {
		model = defaultModel
	}

	geminiReq, err := requestToGemini(request)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "gemini request",
		"model", model,
		"messages", len(request.Messages),
		"tools", len(request.Tools),
		"structured", request.ResponseFormat != nil && request.ResponseFormat.OutputSchema != nil,
	)

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	httpResponse, resp, err := utils.DoPostSync[generateContentResponse](
		ctx,
		p.client,
		url,
		"", // Gemini authenticates with x-goog-api-key, not Bearer
		geminiReq,
		utils.HeaderOption{Key: "x-goog-api-key", Value: p.apiKey},
	)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("gemini: empty response: %s", httpResponse.Status)
	}

	result := geminiToGeneric(*resp)
	if result.Model == "" {
		result.Model = model
	}
	return result, nil
}

// IsStopMessage reports whether the given chat response should be treated as a stop/end signal.
func (p *GeminiProvider) IsStopMessage(message *ai.ChatResponse) bool {
	if message == nil {
		return true
	}

	// Pending tool calls mean the conversation continues.
	if len(message.ToolCalls) > 0 {
		return false
	}

	switch message.FinishReason {
	case ai.FinishReasonStop, ai.FinishReasonLength, ai.FinishReasonContentFilter, ai.FinishReasonError:
		return true
	}

	return message.Content == ""
}
