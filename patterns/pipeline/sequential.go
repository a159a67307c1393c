package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SequentialPipeline runs its steps in declaration order. Each step sees the
// outputs of every step before it. The first failure aborts the pipeline.
type SequentialPipeline struct {
	name  string
	steps []Step
}

// NewSequentialPipeline validates and creates a pipeline. Steps must have
// distinct names and must not write the same key.
func NewSequentialPipeline(name string, steps ...Step) (*SequentialPipeline, error) {
	var buildErrors []error
	if name == "" {
		buildErrors = append(buildErrors, errors.New("pipeline name is empty"))
	}
	if len(steps) == 0 {
		buildErrors = append(buildErrors, fmt.Errorf("pipeline %s has no steps", name))
	}

	names := make(map[string]bool, len(steps))
	valid := make([]Step, 0, len(steps))
	for i, step := range steps {
		if step == nil {
			buildErrors = append(buildErrors, fmt.Errorf("pipeline %s: step %d is nil", name, i))
			continue
		}
		if names[step.Name()] {
			buildErrors = append(buildErrors, fmt.Errorf("pipeline %s: duplicate step %s", name, step.Name()))
		}
		names[step.Name()] = true
		valid = append(valid, step)
	}
	buildErrors = validateKeys("pipeline "+name, valid, buildErrors)

	if len(buildErrors) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPipeline, errors.Join(buildErrors...))
	}

	return &SequentialPipeline{name: name, steps: valid}, nil
}

func (pipeline *SequentialPipeline) Name() string {
	return pipeline.name
}

// Steps returns the steps in declaration order.
func (pipeline *SequentialPipeline) Steps() []Step {
	return append([]Step(nil), pipeline.steps...)
}

func (pipeline *SequentialPipeline) OutputKeys() []string {
	var keys []string
	for _, step := range pipeline.steps {
		keys = append(keys, step.OutputKeys()...)
	}
	return keys
}

// Execute runs the steps against a working copy of state, extending it with
// each step's patch, and returns the combined patch. On failure it returns a
// *PipelineAbort naming the step and no patch. Nothing is retried here.
func (pipeline *SequentialPipeline) Execute(ctx context.Context, exec *Execution, state Snapshot) (Patch, error) {
	started := exec.observeStepStart(ctx, pipeline.name)

	working := state
	var combined Patch
	for _, step := range pipeline.steps {
		if err := ctx.Err(); err != nil {
			return nil, pipeline.abort(ctx, exec, started, step, err)
		}

		patch, err := step.Execute(ctx, exec, working)
		if err != nil {
			return nil, pipeline.abort(ctx, exec, started, step, err)
		}
		if working, err = working.With(patch); err != nil {
			return nil, pipeline.abort(ctx, exec, started, step, err)
		}
		combined = append(combined, patch...)
	}

	exec.observeStepCompleted(ctx, pipeline.name, started, combined)
	return combined, nil
}

// Run executes the pipeline against state and commits the result into it.
func (pipeline *SequentialPipeline) Run(ctx context.Context, exec *Execution, state *SharedState) error {
	patch, err := pipeline.Execute(ctx, exec, state.Snapshot())
	if err != nil {
		return err
	}
	return state.Apply(patch)
}

func (pipeline *SequentialPipeline) abort(ctx context.Context, exec *Execution, started time.Time, step Step, err error) error {
	abort := &PipelineAbort{Pipeline: pipeline.name, Step: step.Name(), Err: err}
	exec.observeStepFailed(ctx, pipeline.name, started, abort)
	return abort
}
