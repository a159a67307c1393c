package ai

import (
	"context"
)

// Provider is the interface every generation backend satisfies. A Provider
// performs exactly one model round-trip per SendMessage call; tool loops and
// retries belong to the client layer.
type Provider interface {
	// SendMessage sends a chat request to the provider and returns the
	// completed response. Returns an error if the provider call fails,
	// the context is cancelled, or the response cannot be decoded.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// IsStopMessage reports whether the response is terminal, i.e. the model
	// requested no further tool calls.
	IsStopMessage(message *ChatResponse) bool

	// Name identifies the backend in logs and metrics.
	Name() string
}
