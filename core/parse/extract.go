package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// fencePattern matches an opening code fence with an optional language tag
// or a closing fence, at the start or end of any line.
var fencePattern = regexp.MustCompile("(?im)^\\s*```[\\w+-]*\\s*|\\s*```\\s*$")

// StripCodeFences removes markdown code fences (```json, ```JSON, bare ```)
// around model output and trims surrounding whitespace.
func StripCodeFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

// Match is a structured value recovered from model output.
type Match struct {
	Value any

	// Embedded is set when the value came from a span inside surrounding
	// prose rather than from the text as a whole.
	Embedded bool

	// Repaired is set when the value only decoded after jsonrepair.
	Repaired bool
}

// ExtractJSON recovers a JSON object or array from free-form model output.
// See FindJSON for the search order.
func ExtractJSON(text string) (any, bool) {
	match, ok := FindJSON(text)
	return match.Value, ok
}

// FindJSON recovers a JSON object or array from free-form model output.
// After fence stripping the whole text is decoded first; text that opens
// with '{' is also tried through jsonrepair. Otherwise every '{' in the text
// is tried in order, the balanced span before the greedy one, first as is
// and then repaired. Spans inside prose only ever yield objects, so
// bracketed citations such as [1] or [gov.in] are left alone. Scalars never
// count as a match.
func FindJSON(text string) (Match, bool) {
	cleaned := StripCodeFences(text)
	if cleaned == "" {
		return Match{}, false
	}

	if value, ok := decodeStructured(cleaned); ok {
		return Match{Value: value}, true
	}
	if cleaned[0] == '{' {
		if value, ok := decodeRepaired(cleaned); ok && isObject(value) {
			return Match{Value: value, Repaired: true}, true
		}
	}

	starts := objectStarts(cleaned)
	for _, start := range starts {
		for _, candidate := range spanCandidates(cleaned, start, false) {
			if value, ok := decodeStructured(candidate); ok && isObject(value) {
				return Match{Value: value, Embedded: true}, true
			}
		}
	}
	for _, start := range starts {
		for _, candidate := range spanCandidates(cleaned, start, true) {
			if value, ok := decodeRepaired(candidate); ok && isObject(value) {
				return Match{Value: value, Embedded: true, Repaired: true}, true
			}
		}
	}

	return Match{}, false
}

func objectStarts(text string) []int {
	var starts []int
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			starts = append(starts, i)
		}
	}
	return starts
}

// spanCandidates lists the balanced and greedy spans opened at start. With
// tail set, an unbalanced opener also yields the rest of the text, which is
// how a truncated object reaches jsonrepair.
func spanCandidates(text string, start int, tail bool) []string {
	var candidates []string
	balancedEnd := balancedSpanEnd(text, start)
	if balancedEnd > start {
		candidates = append(candidates, text[start:balancedEnd])
	}
	if greedyEnd := greedySpanEnd(text, start); greedyEnd > start && greedyEnd != balancedEnd {
		candidates = append(candidates, text[start:greedyEnd])
	}
	if tail && balancedEnd < 0 {
		candidates = append(candidates, text[start:])
	}
	return candidates
}

func decodeStructured(candidate string) (any, bool) {
	var value any
	if err := json.Unmarshal([]byte(candidate), &value); err != nil {
		return nil, false
	}
	return value, isStructured(value)
}

func decodeRepaired(candidate string) (any, bool) {
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, false
	}
	return decodeStructured(repaired)
}

func isObject(value any) bool {
	_, ok := value.(map[string]any)
	return ok
}

func isStructured(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// greedySpanEnd returns the index just past the last '}' after start, or
// -1 if there is none.
func greedySpanEnd(text string, start int) int {
	if end := strings.LastIndexByte(text, '}'); end > start {
		return end + 1
	}
	return -1
}

// balancedSpanEnd returns the index just past the closer that balances the
// opener at start, honouring JSON string literals, or -1 if unbalanced.
func balancedSpanEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
