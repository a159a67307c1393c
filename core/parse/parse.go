package parse

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs parses content into T. Primitive kinds (string, bool,
// integers, floats) are converted directly; everything else is decoded as
// JSON after stripping code fences, and when decoding fails the content is
// passed through jsonrepair and decoded again. Schema-style wrappers of the
// form {"type": ..., "value": ...} that models sometimes emit are unwrapped
// as a last resort.
//
// Example:
//
//	type Person struct {
//	    Name string `json:"name"`
//	}
//
//	person, err := ParseStringAs[Person]("```json\n{name: 'Jane'}\n```")
func ParseStringAs[T any](content string) (T, error) {
	var result T
	target := reflect.ValueOf(&result).Elem()

	switch target.Kind() {
	case reflect.String:
		if unwrapped, ok := unwrapPrimitive(content); ok {
			target.SetString(unwrapped)
		} else {
			target.SetString(content)
		}
		return result, nil

	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		text := strings.TrimSpace(content)
		if err := setPrimitive(target, text); err != nil {
			unwrapped, ok := unwrapPrimitive(text)
			if !ok {
				return result, err
			}
			if err := setPrimitive(target, unwrapped); err != nil {
				return result, err
			}
		}
		return result, nil

	default:
		cleaned := StripCodeFences(content)
		err := json.Unmarshal([]byte(cleaned), &result)
		if err == nil {
			return result, nil
		}

		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
		}

		if err = json.Unmarshal([]byte(repaired), &result); err == nil {
			return result, nil
		}

		if unwrapped, unwrapErr := unwrapSchemaValues(repaired); unwrapErr == nil {
			if json.Unmarshal([]byte(unwrapped), &result) == nil {
				return result, nil
			}
		}

		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w", result, err)
	}
}

func setPrimitive(target reflect.Value, text string) error {
	switch target.Kind() {
	case reflect.Bool:
		value, err := strconv.ParseBool(text)
		if err != nil {
			return fmt.Errorf("failed to parse content as bool: %w", err)
		}
		target.SetBool(value)
	case reflect.Float32, reflect.Float64:
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("failed to parse content as float: %w", err)
		}
		target.SetFloat(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse content as int: %w", err)
		}
		target.SetInt(value)
	default:
		value, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse content as uint: %w", err)
		}
		target.SetUint(value)
	}
	return nil
}

// unwrapPrimitive extracts the value from {"type": "...", "value": x}.
func unwrapPrimitive(content string) (string, bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", false
	}
	if _, hasType := data["type"]; !hasType || len(data) != 2 {
		return "", false
	}
	value, hasValue := data["value"]
	if !hasValue {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case float64, bool:
		return fmt.Sprintf("%v", v), true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(encoded), true
	}
}

// unwrapSchemaValues rewrites {"name": {"type": "string", "value": "John"}}
// into {"name": "John"} at every depth.
func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}

	result, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(result), nil
}

func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result

	default:
		return data
	}
}
