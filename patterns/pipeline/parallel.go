package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ParallelGroup runs its member stages concurrently against the same
// snapshot. It succeeds only if every member succeeds; outputs are then
// merged in declaration order.
type ParallelGroup struct {
	name           string
	members        []Stage
	maxConcurrency int
}

// NewParallelGroup validates and creates a group. Members must have distinct
// names and output keys.
func NewParallelGroup(name string, members ...Stage) (*ParallelGroup, error) {
	var buildErrors []error
	if name == "" {
		buildErrors = append(buildErrors, errors.New("group name is empty"))
	}
	if len(members) == 0 {
		buildErrors = append(buildErrors, fmt.Errorf("group %s has no members", name))
	}

	names := make(map[string]bool, len(members))
	steps := make([]Step, 0, len(members))
	for i, member := range members {
		if member == nil {
			buildErrors = append(buildErrors, fmt.Errorf("group %s: member %d is nil", name, i))
			continue
		}
		if names[member.Name()] {
			buildErrors = append(buildErrors, fmt.Errorf("group %s: duplicate member %s", name, member.Name()))
		}
		names[member.Name()] = true
		steps = append(steps, StageStep(member))
	}
	buildErrors = validateKeys("group "+name, steps, buildErrors)

	if len(buildErrors) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPipeline, errors.Join(buildErrors...))
	}

	return &ParallelGroup{name: name, members: append([]Stage(nil), members...)}, nil
}

// WithMaxConcurrency caps how many members run at once. Zero, the default,
// runs every member at once. It must be called before the group is used.
func (group *ParallelGroup) WithMaxConcurrency(limit int) *ParallelGroup {
	group.maxConcurrency = limit
	return group
}

func (group *ParallelGroup) Name() string {
	return group.name
}

// Members returns the member stages in declaration order.
func (group *ParallelGroup) Members() []Stage {
	return append([]Stage(nil), group.members...)
}

func (group *ParallelGroup) OutputKeys() []string {
	keys := make([]string, len(group.members))
	for i, member := range group.members {
		keys[i] = member.OutputKey()
	}
	return keys
}

// Execute runs every member and waits for all of them. A failing member does
// not cancel its siblings; only ctx does. If any member fails the result is a
// *GroupFailure and no patch.
func (group *ParallelGroup) Execute(ctx context.Context, exec *Execution, state Snapshot) (Patch, error) {
	started := exec.observeStepStart(ctx, group.name)

	values := make([]Value, len(group.members))
	failures := make([]*GenerationError, len(group.members))

	// Members report their own errors through failures, so the group never
	// short-circuits and Wait always returns nil.
	var members errgroup.Group
	if group.maxConcurrency > 0 {
		members.SetLimit(group.maxConcurrency)
	}
	for i, member := range group.members {
		members.Go(func() error {
			value, err := runStage(ctx, exec, member, state)
			if err != nil {
				failures[i] = asGenerationError(member.Name(), err)
				return nil
			}
			values[i] = value
			return nil
		})
	}
	_ = members.Wait()

	var failed []*GenerationError
	for _, failure := range failures {
		if failure != nil {
			failed = append(failed, failure)
		}
	}
	if len(failed) > 0 {
		err := &GroupFailure{Group: group.name, Failures: failed}
		exec.observeStepFailed(ctx, group.name, started, err)
		return nil, err
	}

	patch := make(Patch, len(group.members))
	for i, member := range group.members {
		patch[i] = Entry{Key: member.OutputKey(), Value: values[i]}
	}
	exec.observeStepCompleted(ctx, group.name, started, patch)
	return patch, nil
}
