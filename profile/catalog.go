package profile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leofalp/polprofile/internal/jsonschema"
	"github.com/leofalp/polprofile/patterns/pipeline"
)

//go:embed stages.yaml
var defaultCatalogYAML []byte

// Model tiers referenced by stages.
const (
	TierFast = "fast"
	TierPro  = "pro"
)

// Output schemas a catalog stage may reference by name.
var outputSchemas = map[string]*jsonschema.Schema{
	"disambiguation": jsonschema.MustGenerate[DisambiguationResult](),
	"profile":        jsonschema.MustGenerate[ProfileRecord](),
}

// Catalog is the declarative definition of the workflow.
type Catalog struct {
	Models       map[string]string `yaml:"models"`
	Router       RouterDef         `yaml:"router"`
	Gate         StageDef          `yaml:"gate"`
	ShortCircuit StageDef          `yaml:"short_circuit"`
	Pipeline     PipelineDef       `yaml:"pipeline"`
}

type RouterDef struct {
	Name          string `yaml:"name"`
	DecisionField string `yaml:"decision_field"`
}

// StageDef declares one generation stage. Model is a tier name and
// OutputSchema a schema name, both resolved by Build.
type StageDef struct {
	Name         string   `yaml:"name"`
	Model        string   `yaml:"model"`
	Instruction  string   `yaml:"instruction"`
	OutputKey    string   `yaml:"output_key"`
	OutputSchema string   `yaml:"output_schema"`
	Capabilities []string `yaml:"capabilities"`
	Inputs       []string `yaml:"inputs"`
	Temperature  *float32 `yaml:"temperature"`
}

type PipelineDef struct {
	Name  string    `yaml:"name"`
	Steps []StepDef `yaml:"steps"`
}

// StepDef holds exactly one of Stage or Group.
type StepDef struct {
	Stage *StageDef `yaml:"stage"`
	Group *GroupDef `yaml:"group"`
}

type GroupDef struct {
	Name           string     `yaml:"name"`
	MaxConcurrency int        `yaml:"max_concurrency"`
	Members        []StageDef `yaml:"members"`
}

// DefaultCatalog loads the embedded stages.yaml.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalogYAML)
}

// LoadCatalog decodes and validates a catalog. Unknown fields are rejected.
func LoadCatalog(data []byte) (*Catalog, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var catalog Catalog
	if err := decoder.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidCatalog, err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// OverrideModel points tier at model. An empty model keeps the current one.
func (catalog *Catalog) OverrideModel(tier, model string) {
	if model == "" {
		return
	}
	if catalog.Models == nil {
		catalog.Models = map[string]string{}
	}
	catalog.Models[tier] = model
}

// Stages returns every stage definition: gate, short circuit, then the
// pipeline stages in declaration order with group members inlined.
func (catalog *Catalog) Stages() []StageDef {
	stages := []StageDef{catalog.Gate, catalog.ShortCircuit}
	for _, step := range catalog.Pipeline.Steps {
		if step.Group != nil {
			stages = append(stages, step.Group.Members...)
		}
		if step.Stage != nil {
			stages = append(stages, *step.Stage)
		}
	}
	return stages
}

// Validate checks the whole catalog and reports every problem at once.
func (catalog *Catalog) Validate() error {
	var problems []error
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if len(catalog.Models) == 0 {
		report("no model tiers declared")
	}
	if catalog.Router.Name == "" {
		report("router name is empty")
	}
	if catalog.Pipeline.Name == "" {
		report("pipeline name is empty")
	}
	if len(catalog.Pipeline.Steps) == 0 {
		report("pipeline %s has no steps", catalog.Pipeline.Name)
	}

	names := map[string]bool{catalog.Router.Name: true, catalog.Pipeline.Name: true}
	claimName := func(name string) {
		if name != "" && names[name] {
			report("name %s is used twice", name)
		}
		names[name] = true
	}

	for i, step := range catalog.Pipeline.Steps {
		switch {
		case (step.Stage == nil) == (step.Group == nil):
			report("pipeline step %d must declare exactly one of stage or group", i)
		case step.Group != nil:
			if step.Group.Name == "" {
				report("pipeline step %d: group name is empty", i)
			}
			if len(step.Group.Members) == 0 {
				report("group %s has no members", step.Group.Name)
			}
			claimName(step.Group.Name)
		}
	}

	keys := map[string]string{}
	for _, stage := range catalog.Stages() {
		claimName(stage.Name)
		problems = append(problems, catalog.validateStage(stage)...)

		if stage.OutputKey == "" {
			continue
		}
		if owner, taken := keys[stage.OutputKey]; taken {
			report("output key %s written by both %s and %s", stage.OutputKey, owner, stage.Name)
		}
		keys[stage.OutputKey] = stage.Name
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(problems...))
}

func (catalog *Catalog) validateStage(stage StageDef) []error {
	var problems []error
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("stage %q: "+format, append([]any{stage.Name}, args...)...))
	}

	if stage.Name == "" {
		report("name is empty")
	}
	if strings.TrimSpace(stage.Instruction) == "" {
		report("instruction is empty")
	}
	if stage.OutputKey == "" {
		report("output key is empty")
	}
	if _, ok := catalog.Models[stage.Model]; !ok {
		report("unknown model tier %q", stage.Model)
	}
	if stage.OutputSchema != "" {
		if _, ok := outputSchemas[stage.OutputSchema]; !ok {
			report("unknown output schema %q", stage.OutputSchema)
		}
	}
	for _, capability := range stage.Capabilities {
		switch pipeline.Capability(capability) {
		case pipeline.CapabilitySearch:
			if stage.OutputSchema != "" {
				report("search cannot be combined with an output schema")
			}
		case pipeline.CapabilityFetch:
		default:
			report("unknown capability %q", capability)
		}
	}
	if stage.Temperature != nil && (*stage.Temperature < 0 || *stage.Temperature > 2) {
		report("temperature %.2f outside [0, 2]", *stage.Temperature)
	}
	return problems
}
