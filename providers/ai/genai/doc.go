// Package genai implements [ai.Provider] with the official Google Gen AI Go
// SDK, targeting either the Gemini Developer API or Vertex AI.
//
// It is the alternative to the REST provider in package gemini and is
// selected through configuration. Requests and responses are mapped between
// the generic ai types and the SDK's Content, Part and Schema types.
package genai
