package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewSequentialPipeline_Validation(t *testing.T) {
	if _, err := NewSequentialPipeline("P"); !errors.Is(err, ErrInvalidPipeline) {
		t.Errorf("an empty pipeline must be rejected, got %v", err)
	}

	_, err := NewSequentialPipeline("P",
		StageStep(constStage("A", "fact_sheet", "x")),
		StageStep(constStage("B", "fact_sheet", "y")),
	)
	if !errors.Is(err, ErrInvalidPipeline) {
		t.Errorf("two steps writing one key must be rejected, got %v", err)
	}
}

func TestSequentialPipeline_StepsSeePriorOutputs(t *testing.T) {
	consolidate := &funcStage{name: "ConsolidateNotes", key: "fact_sheet", run: func(_ context.Context, state Snapshot) (Value, error) {
		gov, _ := state.Get("gov_note")
		encyc, _ := state.Get("encyc_note")
		return gov.(string) + "+" + encyc.(string), nil
	}}
	extract := &funcStage{name: "ExtractProfile", key: "structured_profile", run: func(_ context.Context, state Snapshot) (Value, error) {
		facts, ok := state.Get("fact_sheet")
		if !ok {
			return nil, errors.New("fact_sheet missing")
		}
		return map[string]any{"biography": facts}, nil
	}}

	group, err := NewParallelGroup("ParallelResearch", constStage("GovSources", "gov_note", "gov"), constStage("EncyclopediaSources", "encyc_note", "encyc"))
	if err != nil {
		t.Fatalf("NewParallelGroup: %v", err)
	}
	pipeline, err := NewSequentialPipeline("PoliticalProfilePipeline", group, StageStep(consolidate), StageStep(extract))
	if err != nil {
		t.Fatalf("NewSequentialPipeline: %v", err)
	}

	state := NewSharedState()
	if err := pipeline.Run(context.Background(), NewExecution(NewRunContext("q")), state); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantKeys := []string{"gov_note", "encyc_note", "fact_sheet", "structured_profile"}
	if diff := cmp.Diff(wantKeys, state.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	profile, _ := state.Get("structured_profile")
	if diff := cmp.Diff(map[string]any{"biography": "gov+encyc"}, profile); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestSequentialPipeline_FailFast(t *testing.T) {
	boom := errors.New("schema violated")
	var laterRan bool
	later := &funcStage{name: "ValidateProfile", key: "final_profile", run: func(context.Context, Snapshot) (Value, error) {
		laterRan = true
		return "x", nil
	}}

	pipeline, err := NewSequentialPipeline("P",
		StageStep(constStage("ConsolidateNotes", "fact_sheet", "facts")),
		StageStep(failingStage("ExtractProfile", "structured_profile", boom)),
		StageStep(later),
	)
	if err != nil {
		t.Fatalf("NewSequentialPipeline: %v", err)
	}

	state := NewSharedState()
	err = pipeline.Run(context.Background(), NewExecution(NewRunContext("q")), state)

	var abort *PipelineAbort
	if !errors.As(err, &abort) {
		t.Fatalf("expected PipelineAbort, got %v", err)
	}
	if abort.Pipeline != "P" || abort.Step != "ExtractProfile" {
		t.Errorf("unexpected abort %+v", abort)
	}
	if !errors.Is(err, boom) {
		t.Error("the step error must be reachable")
	}
	if laterRan {
		t.Error("steps after the failure must not run")
	}
	if state.Len() != 0 {
		t.Errorf("an aborted pipeline must not commit, got %v", state.Keys())
	}
}

func TestSequentialPipeline_AbortWrapsGroupFailureUnchanged(t *testing.T) {
	group, err := NewParallelGroup("ParallelResearch", failingStage("GovSources", "gov_note", errors.New("down")))
	if err != nil {
		t.Fatalf("NewParallelGroup: %v", err)
	}
	pipeline, err := NewSequentialPipeline("P", group)
	if err != nil {
		t.Fatalf("NewSequentialPipeline: %v", err)
	}

	_, err = pipeline.Execute(context.Background(), NewExecution(NewRunContext("q")), Snapshot{})

	var abort *PipelineAbort
	if !errors.As(err, &abort) {
		t.Fatalf("expected PipelineAbort, got %v", err)
	}
	if _, ok := abort.Unwrap().(*GroupFailure); !ok {
		t.Errorf("Unwrap must yield the GroupFailure itself, got %T", abort.Unwrap())
	}
}

func TestSequentialPipeline_StopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var secondRan bool

	pipeline, err := NewSequentialPipeline("P",
		StageStep(&funcStage{name: "A", key: "a", run: func(context.Context, Snapshot) (Value, error) {
			cancel()
			return "a", nil
		}}),
		StageStep(&funcStage{name: "B", key: "b", run: func(context.Context, Snapshot) (Value, error) {
			secondRan = true
			return "b", nil
		}}),
	)
	if err != nil {
		t.Fatalf("NewSequentialPipeline: %v", err)
	}

	_, err = pipeline.Execute(ctx, NewExecution(NewRunContext("q")), Snapshot{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if secondRan {
		t.Error("no step may start after cancellation")
	}
}
