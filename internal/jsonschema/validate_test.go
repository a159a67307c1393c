package jsonschema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type disambiguation struct {
	IsPolitician   bool   `json:"is_politician"`
	NormalizedName string `json:"normalized_name"`
	Notes          string `json:"notes,omitempty"`
}

type term struct {
	Year  int    `json:"year"`
	House string `json:"house" jsonschema:"enum=lok_sabha,enum=rajya_sabha"`
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		t.Fatalf("bad fixture %q: %v", raw, err)
	}
	return value
}

func TestValidator(t *testing.T) {
	validator, err := NewValidator(MustGenerate[disambiguation]())
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		wantErr  bool
		contains string
	}{
		{name: "valid", input: `{"is_politician": true, "normalized_name": "Jane Doe"}`},
		{name: "extra properties allowed", input: `{"is_politician": false, "normalized_name": "x", "confidence": 0.4}`},
		{name: "missing required", input: `{"normalized_name": "Jane"}`, wantErr: true, contains: "is_politician"},
		{name: "string instead of boolean is not coerced", input: `{"is_politician": "true", "normalized_name": "Jane"}`, wantErr: true, contains: "is_politician"},
		{name: "array at root", input: `[1, 2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(decode(t, tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected error to wrap ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected %q in %q", tt.contains, err.Error())
			}
		})
	}
}

func TestValidateArraysIntegersAndEnums(t *testing.T) {
	schema := MustGenerate[[]term]()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: `[{"year": 2019, "house": "lok_sabha"}]`},
		{name: "fractional year", input: `[{"year": 2019.5, "house": "lok_sabha"}]`, wantErr: true},
		{name: "unknown house", input: `[{"year": 2019, "house": "council"}]`, wantErr: true},
		{name: "item of the wrong type", input: `["2019"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(schema, decode(t, tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIntegerEnum(t *testing.T) {
	schema := &Schema{Type: "integer", Enum: []any{int64(1), int64(2)}}

	if err := Validate(schema, decode(t, `2`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate(schema, decode(t, `3`)); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestValidateNilSchema(t *testing.T) {
	if err := Validate(nil, "anything"); err != nil {
		t.Errorf("nil schema should accept anything, got %v", err)
	}
	var validator *Validator
	if err := validator.Validate("anything"); err != nil {
		t.Errorf("nil validator should accept anything, got %v", err)
	}
}
