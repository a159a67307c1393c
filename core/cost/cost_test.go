package cost

import (
	"math"
	"testing"

	"github.com/leofalp/polprofile/providers/ai"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestModelCost_Estimate(t *testing.T) {
	rates := ModelCost{
		InputCostPerMillion:       1.00,
		OutputCostPerMillion:      4.00,
		CachedInputCostPerMillion: 0.25,
		ReasoningCostPerMillion:   8.00,
	}

	tests := []struct {
		name  string
		usage ai.Usage
		want  float64
	}{
		{name: "empty", usage: ai.Usage{}, want: 0},
		{name: "prompt and completion", usage: ai.Usage{PromptTokens: 1_000_000, CompletionTokens: 500_000}, want: 1.00 + 2.00},
		{name: "cached share", usage: ai.Usage{PromptTokens: 1_000_000, CachedTokens: 400_000}, want: 0.60 + 0.10},
		{name: "reasoning", usage: ai.Usage{ReasoningTokens: 250_000}, want: 2.00},
		{name: "cached above prompt is clamped", usage: ai.Usage{PromptTokens: 100_000, CachedTokens: 200_000}, want: 0.025},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rates.Estimate(tt.usage); !almostEqual(got, tt.want) {
				t.Errorf("Estimate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelCost_EstimateFallbackRates(t *testing.T) {
	rates := ModelCost{InputCostPerMillion: 2, OutputCostPerMillion: 6}
	usage := ai.Usage{PromptTokens: 1_000_000, CachedTokens: 500_000, ReasoningTokens: 1_000_000}

	// Cached tokens at the input rate, reasoning at the output rate.
	if got, want := rates.Estimate(usage), 2.0+6.0; !almostEqual(got, want) {
		t.Errorf("Estimate() = %v, want %v", got, want)
	}
}

func TestTable_Lookup(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		model string
		want  string
		ok    bool
	}{
		{model: "gemini-2.5-flash", want: "gemini-2.5-flash", ok: true},
		{model: "models/gemini-2.5-pro", want: "gemini-2.5-pro", ok: true},
		{model: "gemini-2.5-pro-preview-06-05", want: "gemini-2.5-pro", ok: true},
		{model: "gemini-2.5-flash-lite-001", want: "gemini-2.5-flash-lite", ok: true},
		{model: "gpt-4o", ok: false},
	}
	for _, tt := range tests {
		got, ok := table.Lookup(tt.model)
		if ok != tt.ok {
			t.Errorf("Lookup(%q) ok = %v, want %v", tt.model, ok, tt.ok)
			continue
		}
		if ok && got != table[tt.want] {
			t.Errorf("Lookup(%q) = %v, want the %s rates", tt.model, got, tt.want)
		}
	}
}

func TestTable_Estimate(t *testing.T) {
	usd, ok := DefaultTable().Estimate("gemini-2.5-pro", ai.Usage{PromptTokens: 2_000_000, CompletionTokens: 100_000})
	if !ok {
		t.Fatal("gemini-2.5-pro must be priced")
	}
	if want := 2.50 + 1.00; !almostEqual(usd, want) {
		t.Errorf("Estimate() = %v, want %v", usd, want)
	}

	if _, ok := DefaultTable().Estimate("unknown", ai.Usage{PromptTokens: 10}); ok {
		t.Error("unknown models must not be priced")
	}
}

func TestModelCost_String(t *testing.T) {
	got := ModelCost{InputCostPerMillion: 0.3, OutputCostPerMillion: 2.5}.String()
	if want := "Input: $0.300000/M, Output: $2.500000/M"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
