// Package jsonschema generates JSON Schema structures from Go types using
// reflection and validates decoded JSON values against them.
//
// [GenerateJSONSchema] derives a [Schema] from any Go type T without needing
// a runtime value; struct tags (`json`, `jsonschema`) control names,
// descriptions, enums and required fields. [NewValidator] is the strict
// counterpart used on model output: it resolves a Schema with
// github.com/google/jsonschema-go once and never coerces.
package jsonschema
