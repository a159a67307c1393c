package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the subset of JSON Schema used to describe tool parameters and
// structured model outputs. Providers marshal it directly into their
// response-schema fields, so it deliberately avoids $ref and $defs.
type Schema struct {
	// Type is one of "object", "array", "string", "number", "integer", "boolean".
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	// Items describes array elements.
	Items *Schema `json:"items,omitempty"`
	Enum  []any   `json:"enum,omitempty"`
	// PropertyOrdering preserves struct field order; Gemini uses it to order
	// generated keys.
	PropertyOrdering []string `json:"propertyOrdering,omitempty"`
}

// GenerateJSONSchema derives a Schema from the Go type T. Struct fields are
// named by their json tag; a field is required unless it is a pointer or
// tagged omitempty, or when its jsonschema tag says "required". Recursive
// types are rejected because providers cannot express them without $ref.
func GenerateJSONSchema[T any]() (*Schema, error) {
	return generate(reflect.TypeFor[T](), map[reflect.Type]bool{})
}

// MustGenerate is GenerateJSONSchema for package-level schema variables.
func MustGenerate[T any]() *Schema {
	schema, err := GenerateJSONSchema[T]()
	if err != nil {
		panic(err)
	}
	return schema
}

func generate(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	switch t.Kind() {
	case reflect.Pointer:
		return generate(t.Elem(), inProgress)
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Slice, reflect.Array:
		items, err := generate(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Map:
		// Free-form objects; properties are unknown ahead of time.
		return &Schema{Type: "object"}, nil
	case reflect.Interface:
		return &Schema{}, nil
	case reflect.Struct:
		return generateStruct(t, inProgress)
	default:
		return nil, fmt.Errorf("jsonschema: unsupported kind %s", t.Kind())
	}
}

func generateStruct(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	if inProgress[t] {
		return nil, fmt.Errorf("jsonschema: recursive type %s is not supported", t)
	}
	inProgress[t] = true
	defer delete(inProgress, t)

	schema := &Schema{Type: "object", Properties: map[string]*Schema{}}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldName, omitEmpty, skip := jsonFieldName(field)
		if skip {
			continue
		}

		fieldSchema, err := generate(field.Type, inProgress)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		requiredByTag, err := applyTag(field.Type, field.Tag.Get("jsonschema"), fieldSchema)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		schema.Properties[fieldName] = fieldSchema
		schema.PropertyOrdering = append(schema.PropertyOrdering, fieldName)
		if (field.Type.Kind() != reflect.Pointer && !omitEmpty) || requiredByTag {
			schema.Required = append(schema.Required, fieldName)
		}
	}

	return schema, nil
}

func jsonFieldName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name = field.Name
	if tag == "" {
		return name, false, false
	}

	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, option := range parts[1:] {
		if option == "omitempty" || option == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// applyTag applies a jsonschema struct tag such as
// `jsonschema:"description=Office held, or none,enum=a,enum=b,required"`.
// Commas inside a description are kept: a segment that does not start with a
// known key continues the previous one.
func applyTag(fieldType reflect.Type, tag string, schema *Schema) (bool, error) {
	if tag == "" {
		return false, nil
	}

	var segments []string
	for _, raw := range strings.Split(tag, ",") {
		if len(segments) > 0 && !isTagKey(raw) {
			segments[len(segments)-1] += "," + raw
			continue
		}
		segments = append(segments, raw)
	}

	required := false
	for _, segment := range segments {
		key, value, hasValue := strings.Cut(segment, "=")
		switch {
		case key == "required" && !hasValue:
			required = true
		case key == "description":
			schema.Description = value
		case key == "enum":
			enumValue, err := parseEnumValue(fieldType, value)
			if err != nil {
				return false, err
			}
			schema.Enum = append(schema.Enum, enumValue)
		}
	}

	return required, nil
}

func isTagKey(segment string) bool {
	return segment == "required" || strings.HasPrefix(segment, "description=") || strings.HasPrefix(segment, "enum=")
}

func parseEnumValue(fieldType reflect.Type, value string) (any, error) {
	for fieldType.Kind() == reflect.Pointer {
		fieldType = fieldType.Elem()
	}

	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as integer: %w", value, err)
		}
		return parsed, nil
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as number: %w", value, err)
		}
		return parsed, nil
	case reflect.Bool:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as boolean: %w", value, err)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("enum tag unsupported for field type %v", fieldType)
	}
}

// String returns the compact JSON representation of the schema.
func (s *Schema) String() string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(encoded)
}
