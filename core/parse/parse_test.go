package parse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStringAs_Primitives(t *testing.T) {
	t.Run("string passes through", func(t *testing.T) {
		got, err := ParseStringAs[string]("hello\nworld")
		if err != nil || got != "hello\nworld" {
			t.Errorf("got %q, %v", got, err)
		}
	})

	t.Run("bool with whitespace", func(t *testing.T) {
		got, err := ParseStringAs[bool](" true\n")
		if err != nil || !got {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("invalid bool", func(t *testing.T) {
		if _, err := ParseStringAs[bool]("maybe"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("int", func(t *testing.T) {
		got, err := ParseStringAs[int]("-42")
		if err != nil || got != -42 {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("uint rejects negative", func(t *testing.T) {
		if _, err := ParseStringAs[uint]("-1"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("float", func(t *testing.T) {
		got, err := ParseStringAs[float64]("3.5")
		if err != nil || got != 3.5 {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("schema wrapped primitive", func(t *testing.T) {
		got, err := ParseStringAs[int](`{"type": "integer", "value": 7}`)
		if err != nil || got != 7 {
			t.Errorf("got %v, %v", got, err)
		}
		name, err := ParseStringAs[string](`{"type": "string", "value": "Jane"}`)
		if err != nil || name != "Jane" {
			t.Errorf("got %q, %v", name, err)
		}
	})
}

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestParseStringAs_Structs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    person
		wantErr bool
	}{
		{name: "valid JSON", input: `{"name":"John","age":30}`, want: person{"John", 30}},
		{name: "fenced JSON", input: "```json\n{\"name\":\"John\",\"age\":30}\n```", want: person{"John", 30}},
		{name: "unquoted keys and single quotes", input: `{name: 'John', age: 30}`, want: person{"John", 30}},
		{name: "trailing comma", input: `{"name":"John","age":30,}`, want: person{"John", 30}},
		{name: "schema wrapped fields", input: `{"name":{"type":"string","value":"John"},"age":{"type":"integer","value":30}}`, want: person{"John", 30}},
		{name: "array into struct", input: `[1, 2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringAs[person](tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStringAs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseStringAs_CollectionsAndPointers(t *testing.T) {
	names, err := ParseStringAs[[]string](`["a", "b"]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("slice mismatch (-want +got):\n%s", diff)
	}

	record, err := ParseStringAs[map[string]any](`{"is_politician": true}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record["is_politician"] != true {
		t.Errorf("unexpected map %v", record)
	}

	pointer, err := ParseStringAs[*person](`{"name":"Jane","age":41}`)
	if err != nil || pointer == nil || pointer.Name != "Jane" {
		t.Errorf("got %+v, %v", pointer, err)
	}
}
