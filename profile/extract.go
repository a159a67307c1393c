package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/polprofile/core/parse"
	"github.com/leofalp/polprofile/patterns/pipeline"
)

const (
	fallbackTitle  = "Profile"
	fallbackStatus = "Unknown"
)

// TerminalKeys are the state keys a profile is read from, most refined first.
var TerminalKeys = []string{"final_profile", "structured_profile", "fact_sheet"}

// Method tells how a profile was recovered from a stage output.
type Method string

const (
	// MethodRecord: the output already was a record.
	MethodRecord Method = "record"

	// MethodJSON: a JSON object was parsed out of text, possibly repaired.
	MethodJSON Method = "json"

	// MethodWrapped: structured data without profile fields (an array, or an
	// object with none of the keys) was pretty-printed into the biography.
	MethodWrapped Method = "wrapped"

	// MethodPlainText: nothing parsed; the text became the biography.
	MethodPlainText Method = "plain_text"
)

// Extracted is a recovered profile together with its provenance.
type Extracted struct {
	Profile *ProfileRecord
	Method  Method

	// Key is the state key the profile was read from. Empty for Extract.
	Key string
}

// fieldAliases maps accepted spellings to the canonical field. Canonical
// names come first so they win over legacy spellings.
var fieldAliases = []struct {
	canonical string
	aliases   []string
}{
	{canonical: "title", aliases: []string{"title", "Title"}},
	{canonical: "biography", aliases: []string{"biography", "Biography"}},
	{canonical: "current_status", aliases: []string{"current_status", "Current Status", "Current_Status", "currentStatus", "CurrentStatus"}},
}

// Extract recovers a ProfileRecord from a stage output. Records are returned
// as is. Text is stripped of code fences and parsed as JSON, then scanned for
// an embedded (and if needed repaired) object with a profile field. Arrays
// are wrapped into a placeholder profile; text that does not parse becomes
// the biography verbatim. Empty text and unsupported types fail with ErrExtraction.
func Extract(raw any) (*ProfileRecord, error) {
	extracted, err := ExtractWithMethod(raw)
	if err != nil {
		return nil, err
	}
	return extracted.Profile, nil
}

// ExtractWithMethod is Extract, also reporting how the profile was found.
func ExtractWithMethod(raw any) (*Extracted, error) {
	switch value := raw.(type) {
	case ProfileRecord:
		return &Extracted{Profile: &value, Method: MethodRecord}, nil
	case *ProfileRecord:
		if value == nil {
			return nil, fmt.Errorf("%w: nil record", ErrExtraction)
		}
		record := *value
		return &Extracted{Profile: &record, Method: MethodRecord}, nil
	case map[string]any:
		return fromStructured(value, MethodRecord)
	case []any:
		return fromStructured(value, MethodRecord)
	case string:
		return fromText(value)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrExtraction, raw)
	}
}

// ExtractFromState reads the first terminal key present in state and
// extracts a profile from it. Blank strings, empty objects and empty arrays
// count as absent.
func ExtractFromState(state pipeline.Snapshot) (*Extracted, error) {
	for _, key := range TerminalKeys {
		value, ok := state.Get(key)
		if !ok || value == nil {
			continue
		}
		if isEmptyValue(value) {
			continue
		}

		extracted, err := ExtractWithMethod(value)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", key, err)
		}
		extracted.Key = key
		return extracted, nil
	}
	return nil, fmt.Errorf("%w: keys present %v", ErrNoResult, state.Keys())
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

func fromText(text string) (*Extracted, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrExtraction)
	}

	match, found := parse.FindJSON(text)
	if found && (match.Embedded || match.Repaired) && !hasProfileField(match.Value) {
		// Guessed spans must carry a profile field, or the text is kept whole.
		found = false
	}
	if !found {
		return &Extracted{
			Profile: &ProfileRecord{Title: fallbackTitle, Biography: text, CurrentStatus: fallbackStatus},
			Method:  MethodPlainText,
		}, nil
	}
	return fromStructured(match.Value, MethodJSON)
}

func hasProfileField(value any) bool {
	object, ok := value.(map[string]any)
	if !ok {
		return false
	}
	_, found := recordFromMap(object)
	return found
}

// fromStructured maps a decoded object onto a record, or wraps data that
// carries no profile field.
func fromStructured(value any, method Method) (*Extracted, error) {
	if object, ok := value.(map[string]any); ok {
		if record, hasField := recordFromMap(object); hasField {
			return &Extracted{Profile: record, Method: method}, nil
		}
	}

	pretty, err := prettyJSON(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return &Extracted{
		Profile: &ProfileRecord{Title: fallbackTitle, Biography: pretty, CurrentStatus: fallbackStatus},
		Method:  MethodWrapped,
	}, nil
}

func recordFromMap(object map[string]any) (*ProfileRecord, bool) {
	fields := make(map[string]string, len(fieldAliases))
	found := false
	for _, field := range fieldAliases {
		for _, alias := range field.aliases {
			raw, ok := object[alias]
			if !ok {
				continue
			}
			found = true
			if text := stringify(raw); strings.TrimSpace(text) != "" {
				fields[field.canonical] = text
				break
			}
		}
	}
	if !found {
		return nil, false
	}
	return &ProfileRecord{
		Title:         fields["title"],
		Biography:     fields["biography"],
		CurrentStatus: fields["current_status"],
	}, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

// prettyJSON renders value with two-space indentation and without HTML
// escaping, so non-ASCII names and ampersands survive.
func prettyJSON(value any) (string, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimRight(buffer.String(), "\n"), nil
}
