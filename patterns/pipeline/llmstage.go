package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/leofalp/polprofile/core/client"
	"github.com/leofalp/polprofile/core/parse"
	"github.com/leofalp/polprofile/internal/jsonschema"
	"github.com/leofalp/polprofile/providers/ai"
	"github.com/leofalp/polprofile/providers/tool/webfetch"
)

// Capability is an optional tool a stage may use.
type Capability string

const (
	// CapabilitySearch grounds the answer with the provider's web search.
	CapabilitySearch Capability = "search"

	// CapabilityFetch lets the model download pages through the WebFetch tool.
	// The client must have the tool registered.
	CapabilityFetch Capability = "fetch"
)

var capabilityTools = map[Capability]string{
	CapabilitySearch: ai.ToolGoogleSearch,
	CapabilityFetch:  webfetch.ToolName,
}

// StageSpec declares a generation-backed stage.
type StageSpec struct {
	Name        string
	Model       string
	Instruction string

	// OutputSchema, when set, makes the stage structured: the answer must be
	// a JSON object matching it and is stored as map[string]any.
	OutputSchema *jsonschema.Schema

	OutputKey    string
	Capabilities []Capability

	// Inputs restricts the prior outputs rendered into the prompt, in this
	// order. Empty means every prior output in write order.
	Inputs []string

	// Temperature overrides the model default when set.
	Temperature *float32
}

// LLMStage is a Stage backed by one generation call.
type LLMStage struct {
	spec      StageSpec
	client    *client.Client
	validator *jsonschema.Validator
}

// NewLLMStage validates spec and binds it to c. The spec is copied, so later
// changes by the caller do not affect the stage.
func NewLLMStage(c *client.Client, spec StageSpec) (*LLMStage, error) {
	var errs []error
	if c == nil {
		errs = append(errs, errors.New("client is nil"))
	}
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	if strings.TrimSpace(spec.Instruction) == "" {
		errs = append(errs, errors.New("instruction is empty"))
	}
	if strings.TrimSpace(spec.OutputKey) == "" {
		errs = append(errs, errors.New("output key is empty"))
	}
	for _, capability := range spec.Capabilities {
		if _, known := capabilityTools[capability]; !known {
			errs = append(errs, fmt.Errorf("unknown capability %q", capability))
		}
	}
	validator, err := jsonschema.NewValidator(spec.OutputSchema)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: stage %q: %w", ErrInvalidPipeline, spec.Name, errors.Join(errs...))
	}

	spec.Capabilities = slices.Clone(spec.Capabilities)
	spec.Inputs = slices.Clone(spec.Inputs)
	if spec.Temperature != nil {
		temperature := *spec.Temperature
		spec.Temperature = &temperature
	}
	return &LLMStage{spec: spec, client: c, validator: validator}, nil
}

func (stage *LLMStage) Name() string {
	return stage.spec.Name
}

func (stage *LLMStage) OutputKey() string {
	return stage.spec.OutputKey
}

// Structured reports whether the stage decodes its answer against a schema.
func (stage *LLMStage) Structured() bool {
	return stage.spec.OutputSchema != nil
}

// Execute renders the prompt, sends it and decodes the answer.
func (stage *LLMStage) Execute(ctx context.Context, exec *Execution, state Snapshot) (Value, error) {
	prompt, err := RenderPrompt(exec.Run().Query, state, stage.spec.Inputs)
	if err != nil {
		return nil, &GenerationError{Stage: stage.spec.Name, Err: err}
	}

	options := append(stage.callOptions(), client.WithUsageCallback(func(model string, usage *ai.Usage) {
		exec.observeUsage(stage.spec.Name, model, usage)
	}))
	response, err := stage.client.SendMessage(ctx, prompt, options...)
	if err != nil {
		return nil, &GenerationError{Stage: stage.spec.Name, Err: err}
	}

	value, err := stage.decode(response)
	if err != nil {
		return nil, &GenerationError{Stage: stage.spec.Name, Err: err}
	}
	return value, nil
}

func (stage *LLMStage) callOptions() []client.SendMessageOption {
	options := []client.SendMessageOption{
		client.WithEphemeralSystemPrompt(stage.spec.Instruction),
		client.WithUsageLabel(stage.spec.Name),
	}
	if stage.spec.Model != "" {
		options = append(options, client.WithModel(stage.spec.Model))
	}
	if stage.spec.OutputSchema != nil {
		options = append(options, client.WithOutputSchema(stage.spec.OutputSchema))
	}
	if stage.spec.Temperature != nil {
		options = append(options, client.WithTemperature(*stage.spec.Temperature))
	}
	for _, capability := range stage.spec.Capabilities {
		options = append(options, client.WithEnabledTools(capabilityTools[capability]))
	}
	return options
}

// decode turns a response into the stored value. Structured output is never
// coerced: anything but a schema-valid object fails.
func (stage *LLMStage) decode(response *ai.ChatResponse) (Value, error) {
	if response.Refusal != "" {
		return nil, fmt.Errorf("%w: %s", ErrRefused, response.Refusal)
	}
	if response.FinishReason == ai.FinishReasonContentFilter {
		return nil, fmt.Errorf("%w: content filtered", ErrRefused)
	}

	text := strings.TrimSpace(response.Content)
	if stage.spec.OutputSchema == nil {
		if text == "" {
			return nil, ErrEmptyOutput
		}
		return text, nil
	}

	text = parse.StripCodeFences(text)
	if text == "" {
		return nil, ErrEmptyOutput
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	record, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object, got %T", ErrMalformedOutput, decoded)
	}
	if err := stage.validator.Validate(record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}
	return record, nil
}

// RenderPrompt builds the user message of a stage: the query, then one
// "## <key>" section per prior output. Records are rendered as indented
// JSON. With inputs set only those keys are rendered, in that order, and
// keys not yet written are skipped.
func RenderPrompt(query string, state Snapshot, inputs []string) (string, error) {
	keys := inputs
	if len(keys) == 0 {
		keys = state.Keys()
	}

	var builder strings.Builder
	builder.WriteString(strings.TrimSpace(query))

	for _, key := range keys {
		value, ok := state.Get(key)
		if !ok {
			continue
		}
		rendered, err := renderValue(value)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", key, err)
		}
		builder.WriteString("\n\n## ")
		builder.WriteString(key)
		builder.WriteString("\n")
		builder.WriteString(rendered)
	}
	return builder.String(), nil
}

func renderValue(value Value) (string, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case bool:
		return fmt.Sprint(v), nil
	default:
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}
