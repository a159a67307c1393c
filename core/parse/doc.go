// Package parse extracts structured data from raw model text. Models wrap
// JSON in prose or markdown code fences, so the package layers fence
// stripping, candidate span extraction and automatic JSON repair before
// giving up.
//
// [ParseStringAs] decodes into a typed target; [ExtractJSON] recovers an
// untyped object or array and reports whether one was found at all.
package parse
