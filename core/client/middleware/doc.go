// Package middleware provides the client middlewares the pipeline runs with.
// Each is constructed via a New* function that returns a
// [client.MiddlewareConfig] ready to be passed to [client.WithMiddleware].
//
//   - [NewRetryMiddleware]: retries transient failures (429, 5xx, per-attempt
//     deadlines) with exponential backoff and jitter.
//   - [NewTimeoutMiddleware]: adds a per-request deadline.
//   - [NewLoggingMiddleware]: emits slog entries around every provider call.
//
// Middlewares execute outermost-first. The pipeline wires them as
//
//	Logging → Retry → Timeout → Provider
//
// so each retry attempt gets a fresh deadline and logging sees the final
// outcome.
package middleware
