// Package ai defines the shared, provider-agnostic types used by every
// generation backend. Each provider's conversion layer maps these types to
// its own wire format, keeping the pipeline decoupled from provider details.
//
// Request data flows through [ChatRequest] and responses come back as
// [ChatResponse]. Built-in tools such as Google Search grounding are named
// by constants ([ToolGoogleSearch]) and executed by the provider itself.
package ai
