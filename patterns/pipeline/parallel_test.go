package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewParallelGroup_Validation(t *testing.T) {
	tests := []struct {
		name    string
		group   string
		members []Stage
	}{
		{name: "no members", group: "G"},
		{name: "no name", members: []Stage{constStage("A", "a", "x")}},
		{name: "duplicate key", group: "G", members: []Stage{constStage("A", "k", "x"), constStage("B", "k", "y")}},
		{name: "duplicate name", group: "G", members: []Stage{constStage("A", "a", "x"), constStage("A", "b", "y")}},
		{name: "nil member", group: "G", members: []Stage{nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewParallelGroup(tt.group, tt.members...); !errors.Is(err, ErrInvalidPipeline) {
				t.Errorf("expected ErrInvalidPipeline, got %v", err)
			}
		})
	}
}

func TestParallelGroup_SameSnapshotAndDeclarationOrder(t *testing.T) {
	state := NewSharedState()
	_ = state.Set("disambiguation", map[string]any{"is_politician": true})

	var sawSibling atomic.Bool
	member := func(name, key string, delay time.Duration) Stage {
		return &funcStage{name: name, key: key, run: func(_ context.Context, snapshot Snapshot) (Value, error) {
			time.Sleep(delay)
			for _, sibling := range []string{"gov_note", "encyc_note", "recent_note"} {
				if _, ok := snapshot.Get(sibling); ok {
					sawSibling.Store(true)
				}
			}
			if _, ok := snapshot.Get("disambiguation"); !ok {
				return nil, errors.New("prior output not visible")
			}
			return name, nil
		}}
	}

	group, err := NewParallelGroup("ParallelResearch",
		member("GovSources", "gov_note", 20*time.Millisecond),
		member("EncyclopediaSources", "encyc_note", 0),
		member("RecentUpdates", "recent_note", 10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewParallelGroup: %v", err)
	}

	patch, err := group.Execute(context.Background(), NewExecution(NewRunContext("q")), state.Snapshot())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sawSibling.Load() {
		t.Error("a member observed a sibling's output")
	}

	want := Patch{
		{Key: "gov_note", Value: "GovSources"},
		{Key: "encyc_note", Value: "EncyclopediaSources"},
		{Key: "recent_note", Value: "RecentUpdates"},
	}
	if diff := cmp.Diff(want, patch); diff != "" {
		t.Errorf("patch mismatch (-want +got):\n%s", diff)
	}
}

func TestParallelGroup_MemberFailureIsAllOrNothing(t *testing.T) {
	boom := errors.New("search quota exhausted")
	var siblingFinished atomic.Int32
	sibling := func(name, key string) Stage {
		return &funcStage{name: name, key: key, run: func(context.Context, Snapshot) (Value, error) {
			time.Sleep(10 * time.Millisecond)
			siblingFinished.Add(1)
			return "note", nil
		}}
	}

	group, err := NewParallelGroup("ParallelResearch",
		sibling("GovSources", "gov_note"),
		failingStage("EncyclopediaSources", "encyc_note", boom),
		sibling("RecentUpdates", "recent_note"),
	)
	if err != nil {
		t.Fatalf("NewParallelGroup: %v", err)
	}

	metrics := newRecordingMetrics()
	patch, err := group.Execute(context.Background(), NewExecution(NewRunContext("q"), WithMetrics(metrics)), Snapshot{})
	if patch != nil {
		t.Errorf("a failed group must not return a patch, got %v", patch)
	}

	var groupFailure *GroupFailure
	if !errors.As(err, &groupFailure) {
		t.Fatalf("expected GroupFailure, got %v", err)
	}
	if groupFailure.Group != "ParallelResearch" || len(groupFailure.Failures) != 1 || !groupFailure.Failed("EncyclopediaSources") {
		t.Errorf("unexpected failure %+v", groupFailure)
	}
	if !errors.Is(err, boom) {
		t.Error("the member error must be reachable through the group failure")
	}
	if siblingFinished.Load() != 2 {
		t.Errorf("siblings must run to completion, %d finished", siblingFinished.Load())
	}
	if metrics.steps["ParallelResearch"] != EventFailed || metrics.steps["GovSources"] != EventCompleted {
		t.Errorf("unexpected step outcomes %v", metrics.steps)
	}
}

func TestParallelGroup_ReportsEveryFailureInDeclarationOrder(t *testing.T) {
	group, err := NewParallelGroup("G",
		failingStage("A", "a", errors.New("a failed")),
		constStage("B", "b", "ok"),
		failingStage("C", "c", errors.New("c failed")),
	)
	if err != nil {
		t.Fatalf("NewParallelGroup: %v", err)
	}

	_, err = group.Execute(context.Background(), NewExecution(NewRunContext("q")), Snapshot{})
	var groupFailure *GroupFailure
	if !errors.As(err, &groupFailure) {
		t.Fatalf("expected GroupFailure, got %v", err)
	}
	got := []string{groupFailure.Failures[0].Stage, groupFailure.Failures[1].Stage}
	if diff := cmp.Diff([]string{"A", "C"}, got); diff != "" {
		t.Errorf("failure order mismatch (-want +got):\n%s", diff)
	}
}

func TestParallelGroup_MaxConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	member := func(name string) Stage {
		return &funcStage{name: name, key: name, run: func(context.Context, Snapshot) (Value, error) {
			current := running.Add(1)
			for {
				previous := peak.Load()
				if current <= previous || peak.CompareAndSwap(previous, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return name, nil
		}}
	}

	group, err := NewParallelGroup("G", member("a"), member("b"), member("c"), member("d"))
	if err != nil {
		t.Fatalf("NewParallelGroup: %v", err)
	}
	group.WithMaxConcurrency(1)

	if _, err := group.Execute(context.Background(), NewExecution(NewRunContext("q")), Snapshot{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if peak.Load() != 1 {
		t.Errorf("expected at most one member at a time, peak was %d", peak.Load())
	}
}

func TestParallelGroup_CancellationReachesMembers(t *testing.T) {
	waiting := func(name string) Stage {
		return &funcStage{name: name, key: name, run: func(ctx context.Context, _ Snapshot) (Value, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
	}
	group, err := NewParallelGroup("G", waiting("a"), waiting("b"), waiting("c"))
	if err != nil {
		t.Fatalf("NewParallelGroup: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = group.Execute(ctx, NewExecution(NewRunContext("q")), Snapshot{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}
