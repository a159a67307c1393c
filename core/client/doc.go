// Package client is the layer between pipeline stages and raw provider calls.
// A [Client] sends one user turn per call, applies the model, system prompt,
// output schema and temperature for that call, runs the local tool loop and
// reports token usage to the run's overview.
//
// The entry point is [New], configured with functional options such as
// [WithDefaultModel], [WithTools] and [WithMiddleware]. Per-call behaviour
// is set with [SendMessageOption] values like [WithOutputSchema] and
// [WithEnabledTools]. Cross-cutting concerns (retry, timeout, logging) live
// in the middleware subpackage.
package client
