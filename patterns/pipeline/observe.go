package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/polprofile/internal/utils"
	"github.com/leofalp/polprofile/providers/ai"
)

// Log attribute keys shared by every pipeline log entry.
const (
	attrStep     = "pipeline.step"
	attrRunID    = "pipeline.run_id"
	attrBranch   = "pipeline.branch"
	attrKeys     = "pipeline.keys"
	attrDuration = "duration"
)

// MetricsRecorder receives step outcomes, token usage and routing decisions.
// Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	// StepFinished is called once per stage, group, pipeline or router run.
	StepFinished(step string, status EventStatus, duration time.Duration)

	// TokensUsed is called after every generation call that reported usage.
	TokensUsed(stage, model string, usage ai.Usage)

	// BranchTaken is called once the router decided.
	BranchTaken(router string, branch Branch)
}

type noopRecorder struct{}

func (noopRecorder) StepFinished(string, EventStatus, time.Duration) {}
func (noopRecorder) TokensUsed(string, string, ai.Usage)            {}
func (noopRecorder) BranchTaken(string, Branch)                     {}

// observeStepStart logs and publishes the start of a step and returns the
// start time for the matching completion call.
func (exec *Execution) observeStepStart(ctx context.Context, step string) time.Time {
	exec.logger.DebugContext(ctx, "step started",
		slog.String(attrRunID, exec.run.ID),
		slog.String(attrStep, step),
	)
	exec.emit(ctx, Event{Stage: step, Status: EventStarted})
	return time.Now()
}

// observeStepCompleted records a successful step. A string output is
// previewed in the debug log.
func (exec *Execution) observeStepCompleted(ctx context.Context, step string, started time.Time, patch Patch) {
	duration := time.Since(started)
	exec.recorder.StepFinished(step, EventCompleted, duration)

	attrs := []any{
		slog.String(attrRunID, exec.run.ID),
		slog.String(attrStep, step),
		slog.Duration(attrDuration, duration),
		slog.Any(attrKeys, patch.Keys()),
	}
	exec.logger.InfoContext(ctx, "step completed", attrs...)

	if len(patch) == 1 {
		if text, ok := patch[0].Value.(string); ok {
			exec.logger.DebugContext(ctx, "step output",
				slog.String(attrStep, step),
				slog.String("output", utils.TruncateString(text, 100)),
			)
		}
	}

	exec.emit(ctx, Event{Stage: step, Status: EventCompleted})
}

// observeStepFailed records a failed step.
func (exec *Execution) observeStepFailed(ctx context.Context, step string, started time.Time, err error) {
	duration := time.Since(started)
	exec.recorder.StepFinished(step, EventFailed, duration)

	exec.logger.WarnContext(ctx, "step failed",
		slog.String(attrRunID, exec.run.ID),
		slog.String(attrStep, step),
		slog.Duration(attrDuration, duration),
		slog.String("error", err.Error()),
	)
	exec.emit(ctx, Event{Stage: step, Status: EventFailed, Err: err})
}

// observeBranch records the router decision on the execution, the log, the
// metrics and the event feed.
func (exec *Execution) observeBranch(ctx context.Context, router string, branch Branch) {
	exec.setBranch(branch)
	exec.recorder.BranchTaken(router, branch)

	exec.logger.InfoContext(ctx, "branch selected",
		slog.String(attrRunID, exec.run.ID),
		slog.String(attrStep, router),
		slog.String(attrBranch, string(branch)),
	)
	exec.emit(ctx, Event{Stage: router, Status: EventBranch, Branch: branch})
}

// observeUsage forwards the token usage of one generation call.
func (exec *Execution) observeUsage(stage, model string, usage *ai.Usage) {
	if usage == nil {
		return
	}
	exec.recorder.TokensUsed(stage, model, *usage)
}
