package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	sdk "google.golang.org/genai"

	"github.com/leofalp/polprofile/internal/jsonschema"
	"github.com/leofalp/polprofile/providers/ai"
)

func buildContents(messages []ai.Message) ([]*sdk.Content, error) {
	contents := make([]*sdk.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleUser:
			contents = append(contents, sdk.NewContentFromText(msg.Content, sdk.RoleUser))

		case ai.RoleAssistant:
			c := &sdk.Content{Role: "model"}
			for _, tc := range msg.ToolCalls {
				args := map[string]any{}
				if strings.TrimSpace(tc.Function.Arguments) != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
						return nil, fmt.Errorf("genai: tool call %s arguments: %w", tc.Function.Name, err)
					}
				}
				c.Parts = append(c.Parts, &sdk.Part{
					FunctionCall: &sdk.FunctionCall{ID: tc.ID, Name: tc.Function.Name, Args: args},
				})
			}
			if msg.Content != "" {
				c.Parts = append(c.Parts, &sdk.Part{Text: msg.Content})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}

		case ai.RoleTool:
			contents = append(contents, &sdk.Content{
				Role: "user",
				Parts: []*sdk.Part{{
					FunctionResponse: &sdk.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     msg.Name,
						Response: toolResponsePayload(msg.Content),
					},
				}},
			})
		}
	}

	return contents, nil
}

// toolResponsePayload decodes a JSON object result, or wraps any other text
// under "result".
func toolResponsePayload(text string) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err == nil && payload != nil {
		return payload
	}
	return map[string]any{"result": text}
}

func buildConfig(request ai.ChatRequest) *sdk.GenerateContentConfig {
	config := &sdk.GenerateContentConfig{}

	if request.SystemPrompt != "" {
		config.SystemInstruction = sdk.NewContentFromText(request.SystemPrompt, sdk.RoleUser)
	}

	if gen := request.GenerationConfig; gen != nil {
		config.Temperature = gen.Temperature
		if gen.TopP > 0 {
			topP := gen.TopP
			config.TopP = &topP
		}
		if gen.MaxOutputTokens > 0 {
			config.MaxOutputTokens = int32(gen.MaxOutputTokens)
		}
	}

	if format := request.ResponseFormat; format != nil {
		switch {
		case format.OutputSchema != nil:
			config.ResponseMIMEType = "application/json"
			config.ResponseSchema = toSDKSchema(format.OutputSchema)
		case format.Type == "json_object":
			config.ResponseMIMEType = "application/json"
		}
	}

	var declarations []*sdk.FunctionDeclaration
	for _, t := range request.Tools {
		switch t.Name {
		case ai.ToolGoogleSearch:
			config.Tools = append(config.Tools, &sdk.Tool{GoogleSearch: &sdk.GoogleSearch{}})
		case ai.ToolURLContext:
			config.Tools = append(config.Tools, &sdk.Tool{URLContext: &sdk.URLContext{}})
		default:
			declarations = append(declarations, &sdk.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toSDKSchema(t.Parameters),
			})
		}
	}
	if len(declarations) > 0 {
		config.Tools = append(config.Tools, &sdk.Tool{FunctionDeclarations: declarations})
	}

	return config
}

// toSDKSchema maps the reflection-derived schema onto the SDK's OpenAPI
// subset. Type names are upper-cased; enum values are stringified.
func toSDKSchema(schema *jsonschema.Schema) *sdk.Schema {
	if schema == nil {
		return nil
	}

	out := &sdk.Schema{
		Type:             sdk.Type(strings.ToUpper(schema.Type)),
		Description:      schema.Description,
		Required:         schema.Required,
		PropertyOrdering: schema.PropertyOrdering,
		Items:            toSDKSchema(schema.Items),
	}
	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*sdk.Schema, len(schema.Properties))
		for name, property := range schema.Properties {
			out.Properties[name] = toSDKSchema(property)
		}
	}
	for _, value := range schema.Enum {
		out.Enum = append(out.Enum, fmt.Sprint(value))
	}
	return out
}

func responseToGeneric(resp *sdk.GenerateContentResponse) (*ai.ChatResponse, error) {
	if resp == nil {
		return nil, fmt.Errorf("genai: empty response")
	}

	result := &ai.ChatResponse{
		Id:    resp.ResponseID,
		Model: resp.ModelVersion,
	}

	if usage := resp.UsageMetadata; usage != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
			ReasoningTokens:  int(usage.ThoughtsTokenCount),
			CachedTokens:     int(usage.CachedContentTokenCount),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		result.FinishReason = ai.FinishReasonError
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			result.FinishReason = ai.FinishReasonContentFilter
			result.Refusal = string(resp.PromptFeedback.BlockReason)
		}
		return result, nil
	}

	candidate := resp.Candidates[0]
	result.FinishReason = mapFinishReason(string(candidate.FinishReason))
	if result.FinishReason == ai.FinishReasonContentFilter {
		result.Refusal = string(candidate.FinishReason)
	}

	if candidate.Content != nil {
		var text, reasoning []string
		for _, p := range candidate.Content.Parts {
			if p == nil {
				continue
			}
			if p.Text != "" {
				if p.Thought {
					reasoning = append(reasoning, p.Text)
				} else {
					text = append(text, p.Text)
				}
			}
			if p.FunctionCall != nil {
				args, err := json.Marshal(p.FunctionCall.Args)
				if err != nil {
					return nil, fmt.Errorf("genai: marshal %s arguments: %w", p.FunctionCall.Name, err)
				}
				if p.FunctionCall.Args == nil {
					args = []byte("{}")
				}
				id := p.FunctionCall.ID
				if id == "" {
					id = fmt.Sprintf("call_%d", len(result.ToolCalls))
				}
				result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
					ID:       id,
					Type:     "function",
					Function: ai.ToolCallFunction{Name: p.FunctionCall.Name, Arguments: string(args)},
				})
			}
		}
		result.Content = strings.Join(text, "")
		result.Reasoning = strings.Join(reasoning, "\n")
	}

	if len(result.ToolCalls) > 0 && result.FinishReason == ai.FinishReasonStop {
		result.FinishReason = ai.FinishReasonToolCalls
	}

	if grounding := candidate.GroundingMetadata; grounding != nil {
		result.Grounding = &ai.GroundingMetadata{SearchQueries: grounding.WebSearchQueries}
		for i, chunk := range grounding.GroundingChunks {
			if chunk != nil && chunk.Web != nil {
				result.Grounding.Sources = append(result.Grounding.Sources, ai.GroundingSource{
					Index: i,
					URI:   chunk.Web.URI,
					Title: chunk.Web.Title,
				})
			}
		}
	}

	return result, nil
}

func mapFinishReason(reason string) string {
	switch reason {
	case "MAX_TOKENS":
		return ai.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return ai.FinishReasonContentFilter
	case "MALFORMED_FUNCTION_CALL":
		return ai.FinishReasonError
	default:
		return ai.FinishReasonStop
	}
}
