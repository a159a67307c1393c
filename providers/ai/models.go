package ai

import (
	"encoding/json"

	"github.com/leofalp/polprofile/internal/jsonschema"
)

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest represents a request to send a chat message
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`             // Model name or identifier
	Messages         []Message         `json:"messages"`                    // Contains all messages in the conversation except system prompt
	SystemPrompt     string            `json:"system_prompt,omitempty"`     // Optional system prompt
	Tools            []ToolDescription `json:"tools,omitempty"`             // Built-in and locally executed tool definitions
	ResponseFormat   *ResponseFormat   `json:"response_format,omitempty"`   // Optional response format
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"` // Optional generation configuration
}

// ToolDescription advertises a tool to the model. Built-in tools are
// identified by name only (see ToolGoogleSearch); local tools carry a
// parameter schema.
type ToolDescription struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// Built-in tool names executed by the provider rather than by the client.
const (
	ToolGoogleSearch = "google_search"
	ToolURLContext   = "url_context"
)

// IsBuiltinTool reports whether name refers to a provider-executed tool.
func IsBuiltinTool(name string) bool {
	switch name {
	case ToolGoogleSearch, ToolURLContext:
		return true
	}
	return false
}

// Message represents a single message in a conversation
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	// Tool calling fields
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // For role=assistant requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // For role=tool, links to the tool call being responded to
	Name       string     `json:"name,omitempty"`         // For role=tool, name of the tool that generated this response
}

type GenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`       // Sampling temperature [0..2]; nil keeps the model default
	TopP            float32  `json:"top_p,omitempty"`             // Nucleus (top-p) sampling [0..1]
	MaxOutputTokens int      `json:"max_output_tokens,omitempty"` // Optional max tokens for the output
}

type ResponseFormat struct {
	OutputSchema *jsonschema.Schema `json:"output_schema,omitempty"` // Schema for structured response
	Type         string             `json:"type,omitempty"`          // "text" or "json_object" when no schema is given
}

/*
	##### PROVIDER OUTPUT #####
*/

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	ReasoningTokens int `json:"reasoning_tokens,omitempty"` // Tokens spent on thinking
	CachedTokens    int `json:"cached_tokens,omitempty"`    // Cached prompt tokens
}

// ChatResponse represents the response from a chat completion
type ChatResponse struct {
	Id           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`

	Refusal   string             `json:"refusal,omitempty"`   // Set when the model or a safety filter refused to answer
	Reasoning string             `json:"reasoning,omitempty"` // Thought summaries, when requested
	Grounding *GroundingMetadata `json:"grounding,omitempty"` // Search grounding sources, when a search tool ran
}

// Finish reasons shared by every provider conversion layer.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
	FinishReasonError         = "error"
)

// GroundingMetadata lists the web sources a search-grounded answer relied on.
type GroundingMetadata struct {
	SearchQueries []string          `json:"search_queries,omitempty"`
	Sources       []GroundingSource `json:"sources,omitempty"`
}

type GroundingSource struct {
	Index int    `json:"index"`
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// ToolCall represents a function/tool call request from the LLM
type ToolCall struct {
	ID       string           `json:"id,omitempty"` // Unique identifier for this tool call
	Type     string           `json:"type"`         // "function"
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// ToolResult represents a standardized tool execution result handed back to
// the model, so that failures are visible to it instead of aborting the call.
type ToolResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`   // Machine-readable error code when Success is false
	Message string `json:"message,omitempty"` // Human-readable description
	Data    any    `json:"data,omitempty"`
}

// NewToolResultSuccess creates a successful tool result.
func NewToolResultSuccess(data any) ToolResult {
	return ToolResult{Success: true, Data: data}
}

// NewToolResultError creates a failed tool result with error details.
// errorType should be a machine-readable code such as "tool_not_found".
func NewToolResultError(errorType, message string) ToolResult {
	return ToolResult{Success: false, Error: errorType, Message: message}
}

// ToJSON converts the ToolResult to a JSON string.
func (tr ToolResult) ToJSON() (string, error) {
	bytes, err := json.Marshal(tr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
	RoleTool      MessageRole = "tool"      // Tool/function output
)
