package profile

import (
	"fmt"

	"github.com/leofalp/polprofile/core/client"
	"github.com/leofalp/polprofile/patterns/pipeline"
)

// Build assembles the router described by catalog, binding every stage to c.
// Stages with the fetch capability need the WebFetch tool registered on c.
func Build(catalog *Catalog, c *client.Client) (*pipeline.Router, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	gate, err := buildStage(catalog, c, catalog.Gate)
	if err != nil {
		return nil, err
	}
	shortCircuit, err := buildStage(catalog, c, catalog.ShortCircuit)
	if err != nil {
		return nil, err
	}

	steps := make([]pipeline.Step, 0, len(catalog.Pipeline.Steps))
	for _, stepDef := range catalog.Pipeline.Steps {
		if stepDef.Stage != nil {
			stage, err := buildStage(catalog, c, *stepDef.Stage)
			if err != nil {
				return nil, err
			}
			steps = append(steps, pipeline.StageStep(stage))
			continue
		}

		members := make([]pipeline.Stage, 0, len(stepDef.Group.Members))
		for _, memberDef := range stepDef.Group.Members {
			member, err := buildStage(catalog, c, memberDef)
			if err != nil {
				return nil, err
			}
			members = append(members, member)
		}
		group, err := pipeline.NewParallelGroup(stepDef.Group.Name, members...)
		if err != nil {
			return nil, fmt.Errorf("build group %s: %w", stepDef.Group.Name, err)
		}
		steps = append(steps, group.WithMaxConcurrency(stepDef.Group.MaxConcurrency))
	}

	full, err := pipeline.NewSequentialPipeline(catalog.Pipeline.Name, steps...)
	if err != nil {
		return nil, fmt.Errorf("build pipeline %s: %w", catalog.Pipeline.Name, err)
	}

	return pipeline.NewRouter(pipeline.RouterConfig{
		Name:          catalog.Router.Name,
		Gate:          gate,
		ShortCircuit:  shortCircuit,
		Full:          full,
		DecisionField: catalog.Router.DecisionField,
	})
}

func buildStage(catalog *Catalog, c *client.Client, def StageDef) (*pipeline.LLMStage, error) {
	capabilities := make([]pipeline.Capability, len(def.Capabilities))
	for i, capability := range def.Capabilities {
		capabilities[i] = pipeline.Capability(capability)
	}

	stage, err := pipeline.NewLLMStage(c, pipeline.StageSpec{
		Name:         def.Name,
		Model:        catalog.Models[def.Model],
		Instruction:  def.Instruction,
		OutputSchema: outputSchemas[def.OutputSchema],
		OutputKey:    def.OutputKey,
		Capabilities: capabilities,
		Inputs:       def.Inputs,
		Temperature:  def.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("build stage %s: %w", def.Name, err)
	}
	return stage, nil
}
