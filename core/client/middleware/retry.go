package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/leofalp/polprofile/core/client"
	"github.com/leofalp/polprofile/internal/utils"
	"github.com/leofalp/polprofile/providers/ai"
)

// RetryConfig holds the tuning parameters for the retry middleware. Zero values
// are replaced with the defaults documented below when NewRetryMiddleware is called.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first failure.
	// A value of 2 means the provider is called at most 3 times.
	// Default: 2.
	MaxRetries int

	// InitialBackoff is the wait duration before the first retry attempt.
	// Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff.
	// Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier
	// (backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff)).
	// Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise in [0, JitterFraction * backoff].
	// Default: 0.1.
	JitterFraction float64

	// RetryableFunc returns true when an error should trigger a retry.
	// Default: [IsRetryable].
	RetryableFunc func(error) bool
}

var retryableStatusCodes = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryable reports whether err looks transient: a 408, 429 or 5xx gateway
// status, a per-attempt deadline, or a status hint in an SDK error message.
// Cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		return retryableStatusCodes[statusErr.StatusCode]
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// SDK errors carry their status only as text.
	msg := err.Error()
	for _, hint := range []string{"429", "500", "502", "503", "504", "RESOURCE_EXHAUSTED", "UNAVAILABLE"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = IsRetryable
	}
}

// computeBackoff returns the backoff duration for the given attempt (0-indexed).
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter
	return time.Duration(base + jitter)
}

// NewRetryMiddleware constructs a MiddlewareConfig that retries failed send
// requests according to config. Zero-valued fields are replaced with defaults.
//
// On exhaustion the returned error wraps both [ErrRetryExhausted] and the last
// provider error, so callers can unwrap either.
func NewRetryMiddleware(config RetryConfig) client.MiddlewareConfig {
	applyRetryDefaults(&config)

	sendMiddleware := client.Middleware(func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			var lastErr error

			for attempt := 0; attempt <= config.MaxRetries; attempt++ {
				if attempt > 0 {
					backoff := computeBackoff(config, attempt-1)
					slog.DebugContext(ctx, "retrying provider call",
						"attempt", attempt,
						"backoff", backoff,
						"error", lastErr,
					)
					timer := time.NewTimer(backoff)
					select {
					case <-ctx.Done():
						timer.Stop()
						return nil, ctx.Err()
					case <-timer.C:
					}
				}

				response, err := next(ctx, request)
				if err == nil {
					return response, nil
				}

				lastErr = err
				if !config.RetryableFunc(err) {
					return nil, err
				}
			}

			return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
		}
	})

	return client.MiddlewareConfig{Send: sendMiddleware}
}
