package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/leofalp/polprofile/core/parse"
)

// DefaultDecisionField is the gate output field the router reads by default.
const DefaultDecisionField = "is_politician"

// Branch is the path a Router took.
type Branch string

const (
	BranchNone         Branch = ""
	BranchShortCircuit Branch = "short_circuit"
	BranchFullPipeline Branch = "full_pipeline"
)

type routerState int

const (
	stateGating routerState = iota
	stateShortCircuit
	stateFullPipeline
	stateDone
)

// RouterConfig declares a Router.
type RouterConfig struct {
	Name string

	// Gate classifies the query. Its output must carry DecisionField.
	Gate Stage

	// ShortCircuit writes a user-facing message when the gate says no.
	ShortCircuit Stage

	// Full runs when the gate says yes.
	Full Step

	// DecisionField defaults to DefaultDecisionField.
	DecisionField string
}

// Router gates a run on a classification stage. It moves through
// Gating, then ShortCircuit or FullPipeline, then Done. Only a decision field
// that is exactly the boolean true selects the full pipeline; every other
// gate output, including unparsable text, short-circuits.
type Router struct {
	name          string
	gate          Stage
	shortCircuit  Stage
	full          Step
	decisionField string
}

// NewRouter validates config and creates a Router.
func NewRouter(config RouterConfig) (*Router, error) {
	var buildErrors []error
	if config.Name == "" {
		buildErrors = append(buildErrors, errors.New("router name is empty"))
	}
	if config.Gate == nil {
		buildErrors = append(buildErrors, fmt.Errorf("router %s: gate stage is nil", config.Name))
	}
	if config.ShortCircuit == nil {
		buildErrors = append(buildErrors, fmt.Errorf("router %s: short-circuit stage is nil", config.Name))
	}
	if config.Full == nil {
		buildErrors = append(buildErrors, fmt.Errorf("router %s: full pipeline is nil", config.Name))
	}
	if len(buildErrors) == 0 {
		// Both branches follow the gate, so each must be disjoint from it.
		buildErrors = validateKeys("router "+config.Name, []Step{StageStep(config.Gate), StageStep(config.ShortCircuit)}, buildErrors)
		buildErrors = validateKeys("router "+config.Name, []Step{StageStep(config.Gate), config.Full}, buildErrors)
	}
	if len(buildErrors) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPipeline, errors.Join(buildErrors...))
	}

	if config.DecisionField == "" {
		config.DecisionField = DefaultDecisionField
	}
	return &Router{
		name:          config.Name,
		gate:          config.Gate,
		shortCircuit:  config.ShortCircuit,
		full:          config.Full,
		decisionField: config.DecisionField,
	}, nil
}

func (router *Router) Name() string {
	return router.name
}

// Gate returns the gating stage.
func (router *Router) Gate() Stage {
	return router.gate
}

// ShortCircuit returns the short-circuit stage.
func (router *Router) ShortCircuit() Stage {
	return router.shortCircuit
}

// Full returns the full-pipeline step.
func (router *Router) Full() Step {
	return router.full
}

// OutputKeys lists the gate key followed by the keys of both branches.
func (router *Router) OutputKeys() []string {
	keys := []string{router.gate.OutputKey(), router.shortCircuit.OutputKey()}
	for _, key := range router.full.OutputKeys() {
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Execute drives a fresh state machine for one run and returns the gate
// output followed by the chosen branch's outputs. The branch is recorded
// on exec. A failing gate or short-circuit stage is reported as a
// *PipelineAbort; a failing full pipeline returns its own error.
func (router *Router) Execute(ctx context.Context, exec *Execution, state Snapshot) (Patch, error) {
	started := exec.observeStepStart(ctx, router.name)

	working := state
	var combined Patch
	commit := func(patch Patch) error {
		extended, err := working.With(patch)
		if err != nil {
			return err
		}
		working = extended
		combined = append(combined, patch...)
		return nil
	}

	current := stateGating
	for current != stateDone {
		switch current {
		case stateGating:
			value, err := runStage(ctx, exec, router.gate, working)
			if err == nil {
				err = commit(Patch{{Key: router.gate.OutputKey(), Value: value}})
			}
			if err != nil {
				return nil, router.fail(ctx, exec, started, router.gate.Name(), err)
			}

			branch := Decide(value, router.decisionField)
			exec.observeBranch(ctx, router.name, branch)
			if branch == BranchFullPipeline {
				current = stateFullPipeline
			} else {
				current = stateShortCircuit
			}

		case stateShortCircuit:
			value, err := runStage(ctx, exec, router.shortCircuit, working)
			if err == nil {
				err = commit(Patch{{Key: router.shortCircuit.OutputKey(), Value: value}})
			}
			if err != nil {
				return nil, router.fail(ctx, exec, started, router.shortCircuit.Name(), err)
			}
			current = stateDone

		case stateFullPipeline:
			patch, err := router.full.Execute(ctx, exec, working)
			if err == nil {
				err = commit(patch)
			}
			if err != nil {
				exec.observeStepFailed(ctx, router.name, started, err)
				return nil, err
			}
			current = stateDone
		}
	}

	exec.observeStepCompleted(ctx, router.name, started, combined)
	return combined, nil
}

// Run executes the router against state and commits the result into it.
func (router *Router) Run(ctx context.Context, exec *Execution, state *SharedState) error {
	patch, err := router.Execute(ctx, exec, state.Snapshot())
	if err != nil {
		return err
	}
	return state.Apply(patch)
}

func (router *Router) fail(ctx context.Context, exec *Execution, started time.Time, step string, err error) error {
	abort := &PipelineAbort{Pipeline: router.name, Step: step, Err: err}
	exec.observeStepFailed(ctx, router.name, started, abort)
	return abort
}

// Decide maps a gate output to a branch. A record whose field is exactly
// true selects the full pipeline. Text is scanned for an embedded JSON
// object first. Anything else short-circuits.
func Decide(value Value, field string) Branch {
	if text, ok := value.(string); ok {
		extracted, found := parse.ExtractJSON(text)
		if !found {
			return BranchShortCircuit
		}
		value = extracted
	}

	record, ok := value.(map[string]any)
	if !ok {
		return BranchShortCircuit
	}
	if decision, isBool := record[field].(bool); isBool && decision {
		return BranchFullPipeline
	}
	return BranchShortCircuit
}
