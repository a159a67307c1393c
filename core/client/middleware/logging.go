package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/polprofile/core/client"
	"github.com/leofalp/polprofile/internal/utils"
	"github.com/leofalp/polprofile/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per request.
type LogLevel int

const (
	// LogLevelMinimal logs only the model name, total duration, and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the tool count, finish reason and grounding
	// source count.
	LogLevelStandard

	// LogLevelVerbose adds the prompt and response content, each truncated to
	// 500 characters. Prompts contain researched personal data; keep this
	// for local debugging.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware creates a MiddlewareConfig that emits structured slog
// entries before and after every provider call. The logger must not be nil.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send: func(next client.SendFunc) client.SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				logger.DebugContext(ctx, "llm send", buildRequestAttrs(request, level)...)

				start := time.Now()
				response, err := next(ctx, request)
				elapsed := time.Since(start)

				if err != nil {
					logger.WarnContext(ctx, "llm send failed",
						slog.String("model", request.Model),
						slog.Duration("duration", elapsed),
						slog.String("error", err.Error()),
					)
					return nil, err
				}

				logger.InfoContext(ctx, "llm send completed", buildResponseAttrs(response, elapsed, level)...)
				return response, nil
			}
		},
	}
}

func buildRequestAttrs(request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{slog.String("model", request.Model)}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.Int("message_count", len(request.Messages)),
			slog.Int("tool_count", len(request.Tools)),
			slog.Bool("structured", request.ResponseFormat != nil && request.ResponseFormat.OutputSchema != nil),
		)
	}

	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		first := request.Messages[0]
		attrs = append(attrs,
			slog.String("first_message_role", string(first.Role)),
			slog.String("first_message_content", utils.TruncateString(first.Content, truncateLen)),
		)
	}

	return attrs
}

func buildResponseAttrs(response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.String("model", response.Model),
		slog.Duration("duration", elapsed),
	}

	if response.Usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", response.Usage.PromptTokens),
			slog.Int("completion_tokens", response.Usage.CompletionTokens),
			slog.Int("total_tokens", response.Usage.TotalTokens),
		)
	}

	if level >= LogLevelStandard {
		if response.FinishReason != "" {
			attrs = append(attrs, slog.String("finish_reason", response.FinishReason))
		}
		if response.Grounding != nil {
			attrs = append(attrs, slog.Int("grounding_sources", len(response.Grounding.Sources)))
		}
	}

	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs, slog.String("response_content", utils.TruncateString(response.Content, truncateLen)))
	}

	return attrs
}
