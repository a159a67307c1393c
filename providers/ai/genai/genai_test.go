package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	sdk "google.golang.org/genai"

	"github.com/leofalp/polprofile/internal/jsonschema"
	"github.com/leofalp/polprofile/internal/utils"
	"github.com/leofalp/polprofile/providers/ai"
)

func TestNew_Credentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := New(context.Background(), Config{Vertex: true, Project: "p"}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials for Vertex without location, got %v", err)
	}

	provider, err := New(context.Background(), Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if provider.Name() != "genai" {
		t.Errorf("unexpected name %q", provider.Name())
	}
}

func TestToSDKSchema(t *testing.T) {
	schema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"title"},
		Properties: map[string]*jsonschema.Schema{
			"title": {Type: "string", Description: "Office held"},
			"tags":  {Type: "array", Items: &jsonschema.Schema{Type: "string", Enum: []any{"a", "b"}}},
		},
		PropertyOrdering: []string{"title", "tags"},
	}

	want := &sdk.Schema{
		Type:     sdk.TypeObject,
		Required: []string{"title"},
		Properties: map[string]*sdk.Schema{
			"title": {Type: sdk.TypeString, Description: "Office held"},
			"tags":  {Type: sdk.TypeArray, Items: &sdk.Schema{Type: sdk.TypeString, Enum: []string{"a", "b"}}},
		},
		PropertyOrdering: []string{"title", "tags"},
	}

	if diff := cmp.Diff(want, toSDKSchema(schema)); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
	if toSDKSchema(nil) != nil {
		t.Error("nil schema must map to nil")
	}
}

func TestBuildConfig(t *testing.T) {
	config := buildConfig(ai.ChatRequest{
		SystemPrompt:     "Be factual.",
		GenerationConfig: &ai.GenerationConfig{Temperature: utils.Ptr(float32(0.2)), MaxOutputTokens: 512},
		ResponseFormat:   &ai.ResponseFormat{OutputSchema: &jsonschema.Schema{Type: "object"}},
		Tools: []ai.ToolDescription{
			{Name: ai.ToolGoogleSearch},
			{Name: "WebFetch", Parameters: &jsonschema.Schema{Type: "object"}},
		},
	})

	if config.SystemInstruction == nil || config.SystemInstruction.Parts[0].Text != "Be factual." {
		t.Errorf("unexpected system instruction %+v", config.SystemInstruction)
	}
	if config.Temperature == nil || *config.Temperature != 0.2 {
		t.Errorf("unexpected temperature %v", config.Temperature)
	}
	if config.MaxOutputTokens != 512 {
		t.Errorf("unexpected max tokens %d", config.MaxOutputTokens)
	}
	if config.ResponseMIMEType != "application/json" || config.ResponseSchema == nil {
		t.Error("expected JSON response schema")
	}
	if len(config.Tools) != 2 || config.Tools[0].GoogleSearch == nil || len(config.Tools[1].FunctionDeclarations) != 1 {
		t.Errorf("unexpected tools %+v", config.Tools)
	}
}

func TestBuildContents(t *testing.T) {
	contents, err := buildContents([]ai.Message{
		{Role: ai.RoleUser, Content: "check"},
		{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{{ID: "c1", Function: ai.ToolCallFunction{Name: "WebFetch", Arguments: `{"url":"x"}`}}}},
		{Role: ai.RoleTool, ToolCallID: "c1", Name: "WebFetch", Content: "not an object"},
	})
	if err != nil {
		t.Fatalf("buildContents: %v", err)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if call := contents[1].Parts[0].FunctionCall; call == nil || call.Args["url"] != "x" {
		t.Errorf("unexpected function call %+v", contents[1].Parts[0])
	}
	if resp := contents[2].Parts[0].FunctionResponse; resp == nil || resp.Response["result"] != "not an object" {
		t.Errorf("unexpected function response %+v", contents[2].Parts[0])
	}

	_, err = buildContents([]ai.Message{{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{{Function: ai.ToolCallFunction{Arguments: "{broken"}}}}})
	if err == nil {
		t.Error("expected an error for malformed tool arguments")
	}
}

func TestResponseToGeneric(t *testing.T) {
	resp := &sdk.GenerateContentResponse{
		ResponseID: "r1",
		Candidates: []*sdk.Candidate{{
			Content: &sdk.Content{Parts: []*sdk.Part{
				{Text: "pondering", Thought: true},
				{Text: "Serving MP"},
				{FunctionCall: &sdk.FunctionCall{Name: "WebFetch", Args: map[string]any{"url": "sansad.in"}}},
			}},
			FinishReason: sdk.FinishReasonStop,
			GroundingMetadata: &sdk.GroundingMetadata{
				WebSearchQueries: []string{"q"},
				GroundingChunks:  []*sdk.GroundingChunk{{Web: &sdk.GroundingChunkWeb{URI: "https://sansad.in", Title: "Sansad"}}},
			},
		}},
		UsageMetadata: &sdk.GenerateContentResponseUsageMetadata{PromptTokenCount: 3, CandidatesTokenCount: 4, TotalTokenCount: 7},
	}

	got, err := responseToGeneric(resp)
	if err != nil {
		t.Fatalf("responseToGeneric: %v", err)
	}

	want := &ai.ChatResponse{
		Id:           "r1",
		Content:      "Serving MP",
		Reasoning:    "pondering",
		FinishReason: ai.FinishReasonToolCalls,
		ToolCalls: []ai.ToolCall{{
			ID:       "call_0",
			Type:     "function",
			Function: ai.ToolCallFunction{Name: "WebFetch", Arguments: `{"url":"sansad.in"}`},
		}},
		Usage: &ai.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
		Grounding: &ai.GroundingMetadata{
			SearchQueries: []string{"q"},
			Sources:       []ai.GroundingSource{{Index: 0, URI: "https://sansad.in", Title: "Sansad"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestResponseToGeneric_Blocked(t *testing.T) {
	got, err := responseToGeneric(&sdk.GenerateContentResponse{
		PromptFeedback: &sdk.GenerateContentResponsePromptFeedback{BlockReason: sdk.BlockedReasonSafety},
	})
	if err != nil {
		t.Fatalf("responseToGeneric: %v", err)
	}
	if got.FinishReason != ai.FinishReasonContentFilter || got.Refusal != "SAFETY" {
		t.Errorf("unexpected blocked mapping %+v", got)
	}

	if _, err := responseToGeneric(nil); err == nil {
		t.Error("expected an error for a nil response")
	}
}
