package cost

import (
	"fmt"
	"strings"

	"github.com/leofalp/polprofile/providers/ai"
)

// ModelCost holds the USD price per one million tokens of each kind.
//
// Example:
//
//	flash := cost.ModelCost{
//	    InputCostPerMillion:       0.30,
//	    OutputCostPerMillion:      2.50,
//	    CachedInputCostPerMillion: 0.075,
//	    ReasoningCostPerMillion:   2.50,
//	}
type ModelCost struct {
	InputCostPerMillion  float64 `json:"input_cost_per_million"`
	OutputCostPerMillion float64 `json:"output_cost_per_million"`

	// CachedInputCostPerMillion applies to the cached share of the prompt.
	// Zero bills cached tokens at the input rate.
	CachedInputCostPerMillion float64 `json:"cached_input_cost_per_million,omitempty"`

	// ReasoningCostPerMillion applies to thinking tokens, which Gemini
	// reports apart from the completion. Zero bills them at the output rate.
	ReasoningCostPerMillion float64 `json:"reasoning_cost_per_million,omitempty"`
}

func perMillion(tokens int, rate float64) float64 {
	return float64(tokens) / 1_000_000.0 * rate
}

// Estimate returns the cost of one call. Prompt tokens include the cached
// ones, as Gemini counts them.
func (mc ModelCost) Estimate(usage ai.Usage) float64 {
	cachedRate := mc.CachedInputCostPerMillion
	if cachedRate == 0 {
		cachedRate = mc.InputCostPerMillion
	}
	reasoningRate := mc.ReasoningCostPerMillion
	if reasoningRate == 0 {
		reasoningRate = mc.OutputCostPerMillion
	}

	cached := min(usage.CachedTokens, usage.PromptTokens)
	total := perMillion(usage.PromptTokens-cached, mc.InputCostPerMillion)
	total += perMillion(cached, cachedRate)
	total += perMillion(usage.CompletionTokens, mc.OutputCostPerMillion)
	total += perMillion(usage.ReasoningTokens, reasoningRate)
	return total
}

func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M", mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// Table maps model names to their rates.
type Table map[string]ModelCost

// DefaultTable returns list prices of the Gemini models the pipeline uses,
// for prompts up to 200k tokens.
func DefaultTable() Table {
	return Table{
		"gemini-2.5-pro": {
			InputCostPerMillion:       1.25,
			OutputCostPerMillion:      10.00,
			CachedInputCostPerMillion: 0.31,
		},
		"gemini-2.5-flash": {
			InputCostPerMillion:       0.30,
			OutputCostPerMillion:      2.50,
			CachedInputCostPerMillion: 0.075,
		},
		"gemini-2.5-flash-lite": {
			InputCostPerMillion:       0.10,
			OutputCostPerMillion:      0.40,
			CachedInputCostPerMillion: 0.025,
		},
	}
}

// Lookup finds the rates for model: an exact entry first, then the longest
// entry that prefixes it.
func (t Table) Lookup(model string) (ModelCost, bool) {
	model = strings.TrimPrefix(model, "models/")
	if rates, ok := t[model]; ok {
		return rates, true
	}

	best := ""
	for name := range t {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ModelCost{}, false
	}
	return t[best], true
}

// Estimate prices one call of model. ok is false for unknown models.
func (t Table) Estimate(model string, usage ai.Usage) (usd float64, ok bool) {
	rates, ok := t.Lookup(model)
	if !ok {
		return 0, false
	}
	return rates.Estimate(usage), true
}
