package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leofalp/polprofile/core/parse"
	"github.com/leofalp/polprofile/internal/jsonschema"
	"github.com/leofalp/polprofile/providers/ai"
)

// Tool represents a typed, callable tool that the client executes locally
// when the model asks for it. It binds a name and description to a Go
// function and derives the JSON schemas for input I and output O.
// Use [NewTool] to construct a Tool.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)
}

// GenericTool is the type-erased view of a [Tool] used by the client's tool
// loop and by [Catalog].
type GenericTool interface {
	// ToolInfo returns the metadata used to advertise this tool to the model.
	ToolInfo() ai.ToolDescription

	// Call invokes the tool with a JSON-encoded input string and returns a
	// JSON-encoded output string.
	Call(ctx context.Context, inputJson string) (string, error)
}

type funcToolOptions struct {
	Description string
}

// WithDescription sets a human-readable description for the tool.
// Providers surface it to the language model.
func WithDescription(description string) func(tool *funcToolOptions) {
	return func(s *funcToolOptions) {
		s.Description = description
	}
}

// NewTool constructs a new [Tool]. It fails when no JSON schema can be
// derived from the input type I.
//
// Example:
//
//	fetchTool, err := tool.NewTool("WebFetch", fetchFunc,
//	    tool.WithDescription("Fetches a page as Markdown."),
//	)
func NewTool[I, O any](name string, function func(ctx context.Context, input I) (O, error), options ...func(tool *funcToolOptions)) (*Tool[I, O], error) {
	toolOptions := &funcToolOptions{}
	for _, option := range options {
		option(toolOptions)
	}

	parameters, err := jsonschema.GenerateJSONSchema[I]()
	if err != nil {
		return nil, fmt.Errorf("tool %s: input schema: %w", name, err)
	}

	return &Tool[I, O]{
		Name:        name,
		Description: toolOptions.Description,
		Parameters:  parameters,
		Function:    function,
	}, nil
}

// ToolInfo returns the [ai.ToolDescription] used to advertise this tool.
func (t *Tool[I, O]) ToolInfo() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Call decodes inputJson leniently into I (models emit sloppy JSON), runs
// the function and returns its output marshalled as JSON.
func (t *Tool[I, O]) Call(ctx context.Context, inputJson string) (string, error) {
	parsedInput, err := parse.ParseStringAs[I](inputJson)
	if err != nil {
		return "", fmt.Errorf("tool %s: invalid input: %w", t.Name, err)
	}

	output, err := t.Function(ctx, parsedInput)
	if err != nil {
		return "", err
	}

	outputBytes, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("tool %s: marshal output: %w", t.Name, err)
	}
	return string(outputBytes), nil
}
