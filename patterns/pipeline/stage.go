package pipeline

import (
	"context"
	"fmt"
)

// Stage is a single unit of work that writes exactly one key.
type Stage interface {
	// Name identifies the stage in events, logs and errors.
	Name() string

	// OutputKey is the shared-state key the stage writes.
	OutputKey() string

	// Execute produces the stage output from the run and a snapshot of the
	// outputs written before it started.
	Execute(ctx context.Context, exec *Execution, state Snapshot) (Value, error)
}

// Step is anything a SequentialPipeline or Router can run: a stage, a
// parallel group, a nested pipeline.
type Step interface {
	Name() string

	// OutputKeys lists every key the step may write. Used to reject
	// definitions where two steps would write the same key.
	OutputKeys() []string

	// Execute runs the step against state and returns its writes. A failed
	// step returns no patch.
	Execute(ctx context.Context, exec *Execution, state Snapshot) (Patch, error)
}

// StageStep adapts a Stage to a Step.
func StageStep(stage Stage) Step {
	return stageStep{stage: stage}
}

type stageStep struct {
	stage Stage
}

func (s stageStep) Name() string {
	return s.stage.Name()
}

func (s stageStep) OutputKeys() []string {
	return []string{s.stage.OutputKey()}
}

func (s stageStep) Execute(ctx context.Context, exec *Execution, state Snapshot) (Patch, error) {
	value, err := runStage(ctx, exec, s.stage, state)
	if err != nil {
		return nil, err
	}
	return Patch{{Key: s.stage.OutputKey(), Value: value}}, nil
}

// runStage executes stage with lifecycle observation. Every error is
// returned as a *GenerationError naming the stage.
func runStage(ctx context.Context, exec *Execution, stage Stage, state Snapshot) (Value, error) {
	started := exec.observeStepStart(ctx, stage.Name())

	value, err := stage.Execute(ctx, exec, state)
	if err == nil && value == nil {
		err = ErrEmptyOutput
	}
	if err != nil {
		generationErr := asGenerationError(stage.Name(), err)
		exec.observeStepFailed(ctx, stage.Name(), started, generationErr)
		return nil, generationErr
	}

	exec.observeStepCompleted(ctx, stage.Name(), started, Patch{{Key: stage.OutputKey(), Value: value}})
	return value, nil
}

// validateKeys appends an error to errs for each key claimed twice.
func validateKeys(owner string, steps []Step, errs []error) []error {
	owners := make(map[string]string)
	for _, step := range steps {
		for _, key := range step.OutputKeys() {
			if key == "" {
				errs = append(errs, fmt.Errorf("%s: step %s has an empty output key", owner, step.Name()))
				continue
			}
			if previous, taken := owners[key]; taken {
				errs = append(errs, fmt.Errorf("%s: key %q written by both %s and %s", owner, key, previous, step.Name()))
				continue
			}
			owners[key] = step.Name()
		}
	}
	return errs
}
