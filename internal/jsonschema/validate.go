package jsonschema

import (
	"errors"
	"fmt"

	gjs "github.com/google/jsonschema-go/jsonschema"
)

// ErrInvalid is wrapped by every error returned from a Validator.
var ErrInvalid = errors.New("value does not match schema")

// Validator checks decoded JSON values against a Schema resolved once up
// front.
type Validator struct {
	resolved *gjs.Resolved
}

// NewValidator resolves schema for validation. A nil schema yields a
// Validator that accepts everything.
func NewValidator(schema *Schema) (*Validator, error) {
	if schema == nil {
		return &Validator{}, nil
	}
	resolved, err := toValidationSchema(schema).Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: resolve: %w", err)
	}
	return &Validator{resolved: resolved}, nil
}

// Validate checks value, as produced by encoding/json decoding into any.
// It checks types, required properties, enums and array items and never
// coerces.
func (v *Validator) Validate(value any) error {
	if v == nil || v.resolved == nil {
		return nil
	}
	if err := v.resolved.Validate(value); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Validate is NewValidator followed by Validator.Validate, for one-off
// checks.
func Validate(schema *Schema, value any) error {
	validator, err := NewValidator(schema)
	if err != nil {
		return err
	}
	return validator.Validate(value)
}

// toValidationSchema copies the keywords a Schema carries into the
// validator's representation. PropertyOrdering is a generation hint and
// has no counterpart.
func toValidationSchema(schema *Schema) *gjs.Schema {
	if schema == nil {
		return nil
	}
	converted := &gjs.Schema{
		Type:        schema.Type,
		Description: schema.Description,
		Required:    schema.Required,
		Items:       toValidationSchema(schema.Items),
		Enum:        decodedEnum(schema.Enum),
	}
	if len(schema.Properties) > 0 {
		converted.Properties = make(map[string]*gjs.Schema, len(schema.Properties))
		for name, property := range schema.Properties {
			converted.Properties[name] = toValidationSchema(property)
		}
	}
	return converted
}

// decodedEnum turns integer enum values into float64, the type
// encoding/json produces for numbers.
func decodedEnum(enum []any) []any {
	if len(enum) == 0 {
		return nil
	}
	converted := make([]any, len(enum))
	for i, value := range enum {
		if integer, ok := value.(int64); ok {
			converted[i] = float64(integer)
			continue
		}
		converted[i] = value
	}
	return converted
}
