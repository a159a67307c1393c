package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/polprofile/providers/ai"
)

// requestToGemini converts an ai.ChatRequest to a Gemini generateContentRequest.
func requestToGemini(request ai.ChatRequest) (generateContentRequest, error) {
	req := generateContentRequest{
		Contents: buildContents(request.Messages),
	}

	if request.SystemPrompt != "" {
		req.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: request.SystemPrompt}},
		}
	}

	generation, err := buildGenerationConfig(request.GenerationConfig, request.ResponseFormat)
	if err != nil {
		return req, err
	}
	req.GenerationConfig = generation

	if len(request.Tools) > 0 {
		tools, err := buildTools(request.Tools)
		if err != nil {
			return req, err
		}
		req.Tools = tools
	}

	return req, nil
}

// buildContents converts ai.Message slice to Gemini content slice.
// Role mapping: user -> user, assistant -> model, tool -> user with functionResponse
func buildContents(messages []ai.Message) []content {
	var contents []content

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleUser:
			contents = append(contents, content{Role: "user", Parts: []part{{Text: msg.Content}}})

		case ai.RoleAssistant:
			c := content{Role: "model"}
			for _, tc := range msg.ToolCalls {
				args := json.RawMessage(tc.Function.Arguments)
				if !json.Valid(args) {
					args = json.RawMessage("{}")
				}
				c.Parts = append(c.Parts, part{
					FunctionCall: &functionCall{Name: tc.Function.Name, Args: args},
				})
			}
			if msg.Content != "" {
				c.Parts = append(c.Parts, part{Text: msg.Content})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}

		case ai.RoleTool:
			contents = append(contents, content{
				Role: "user",
				Parts: []part{{
					FunctionResponse: &functionResponse{
						Name:     msg.Name,
						Response: toolResponsePayload(msg.Content),
					},
				}},
			})
		}
	}

	return contents
}

// toolResponsePayload returns content as-is when it is a JSON object, and
// wraps anything else as {"result": ...}; Gemini rejects non-object responses.
func toolResponsePayload(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	wrapped, _ := json.Marshal(map[string]string{"result": text})
	return wrapped
}

// buildGenerationConfig converts ai.GenerationConfig and ai.ResponseFormat to Gemini generationConfig.
func buildGenerationConfig(cfg *ai.GenerationConfig, respFmt *ai.ResponseFormat) (*generationConfig, error) {
	if cfg == nil && respFmt == nil {
		return nil, nil
	}

	gc := &generationConfig{}

	if cfg != nil {
		if cfg.Temperature != nil {
			temperature := float64(*cfg.Temperature)
			gc.Temperature = &temperature
		}
		if cfg.TopP > 0 {
			topP := float64(cfg.TopP)
			gc.TopP = &topP
		}
		if cfg.MaxOutputTokens > 0 {
			gc.MaxOutputTokens = &cfg.MaxOutputTokens
		}
	}

	if respFmt != nil {
		switch {
		case respFmt.OutputSchema != nil:
			schemaBytes, err := json.Marshal(respFmt.OutputSchema)
			if err != nil {
				return nil, fmt.Errorf("gemini: marshal response schema: %w", err)
			}
			gc.ResponseMimeType = "application/json"
			gc.ResponseSchema = schemaBytes
		case respFmt.Type == "json_object":
			gc.ResponseMimeType = "application/json"
		}
	}

	return gc, nil
}

// buildTools converts ai.ToolDescription slice to Gemini tool slice.
// Built-in tools become their own entries; local functions are grouped
// into a single functionDeclarations entry.
func buildTools(aiTools []ai.ToolDescription) ([]tool, error) {
	var result []tool
	var funcDecls []functionDeclaration

	for _, t := range aiTools {
		switch t.Name {
		case ai.ToolGoogleSearch:
			result = append(result, tool{GoogleSearch: &struct{}{}})

		case ai.ToolURLContext:
			result = append(result, tool{URLContext: &struct{}{}})

		default:
			fd := functionDeclaration{Name: t.Name, Description: t.Description}
			if t.Parameters != nil {
				paramBytes, err := json.Marshal(t.Parameters)
				if err != nil {
					return nil, fmt.Errorf("gemini: marshal parameters of %s: %w", t.Name, err)
				}
				fd.Parameters = paramBytes
			}
			funcDecls = append(funcDecls, fd)
		}
	}

	if len(funcDecls) > 0 {
		result = append(result, tool{FunctionDeclarations: funcDecls})
	}
	return result, nil
}

// geminiToGeneric converts a Gemini generateContentResponse to ai.ChatResponse.
func geminiToGeneric(resp generateContentResponse) *ai.ChatResponse {
	result := &ai.ChatResponse{
		Id:    resp.ResponseID,
		Model: resp.ModelVersion,
	}

	if resp.UsageMetadata != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
			ReasoningTokens:  resp.UsageMetadata.ThoughtsTokenCount,
			CachedTokens:     resp.UsageMetadata.CachedContentTokenCount,
		}
	}

	if len(resp.Candidates) == 0 {
		result.FinishReason = ai.FinishReasonError
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			result.FinishReason = ai.FinishReasonContentFilter
			result.Refusal = resp.PromptFeedback.BlockReason
		}
		return result
	}

	candidate := resp.Candidates[0]
	result.FinishReason = mapFinishReason(candidate.FinishReason)
	if result.FinishReason == ai.FinishReasonContentFilter {
		result.Refusal = candidate.FinishReason
	}

	if candidate.Content != nil {
		var textParts []string
		var reasoningParts []string

		for _, p := range candidate.Content.Parts {
			if p.Text != "" {
				if p.Thought {
					reasoningParts = append(reasoningParts, p.Text)
				} else {
					textParts = append(textParts, p.Text)
				}
			}

			if p.FunctionCall != nil {
				args := string(p.FunctionCall.Args)
				if args == "" {
					args = "{}"
				}
				result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
					ID:   fmt.Sprintf("call_%d", len(result.ToolCalls)),
					Type: "function",
					Function: ai.ToolCallFunction{
						Name:      p.FunctionCall.Name,
						Arguments: args,
					},
				})
			}
		}

		result.Content = strings.Join(textParts, "")
		result.Reasoning = strings.Join(reasoningParts, "\n")
	}

	if len(result.ToolCalls) > 0 && result.FinishReason == ai.FinishReasonStop {
		result.FinishReason = ai.FinishReasonToolCalls
	}

	result.Grounding = mapGroundingMetadata(candidate.GroundingMetadata)
	return result
}

// mapFinishReason converts Gemini finish reason to ai.ChatResponse finish reason.
func mapFinishReason(geminiReason string) string {
	switch geminiReason {
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

func mapGroundingMetadata(gm *groundingMetadata) *ai.GroundingMetadata {
	if gm == nil {
		return nil
	}

	result := &ai.GroundingMetadata{SearchQueries: gm.WebSearchQueries}
	for i, chunk := range gm.GroundingChunks {
		if chunk.Web != nil {
			result.Sources = append(result.Sources, ai.GroundingSource{
				Index: i,
				URI:   chunk.Web.URI,
				Title: chunk.Web.Title,
			})
		}
	}
	return result
}
