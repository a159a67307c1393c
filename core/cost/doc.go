// Package cost estimates the USD cost of model calls from token usage.
//
// [ModelCost] holds per-million-token rates; [Table] maps model names to
// rates and resolves versioned names (gemini-2.5-pro-preview-06-05) to
// their family entry by prefix.
package cost
