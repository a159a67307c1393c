package middleware

import (
	"context"
	"time"

	"github.com/leofalp/polprofile/core/client"
	"github.com/leofalp/polprofile/providers/ai"
)

// NewTimeoutMiddleware creates a MiddlewareConfig that enforces a per-request
// deadline on provider calls. Placed inside the retry middleware, every
// attempt gets its own deadline.
//
// If the caller supplies a context that already has a shorter deadline, that
// shorter deadline wins as per normal context semantics. A non-positive
// timeout disables the middleware.
func NewTimeoutMiddleware(timeout time.Duration) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send: func(next client.SendFunc) client.SendFunc {
			if timeout <= 0 {
				return next
			}
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				return next(ctx, request)
			}
		},
	}
}
