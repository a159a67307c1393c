package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunContext identifies one run: its id, the originating query, when it
// started and its shared state. It lives exactly as long as the run.
type RunContext struct {
	ID        string
	Query     string
	StartedAt time.Time
	State     *SharedState
}

// NewRunContext creates a run with a fresh UUID and an empty state.
func NewRunContext(query string) *RunContext {
	return &RunContext{
		ID:        uuid.NewString(),
		Query:     query,
		StartedAt: time.Now(),
		State:     NewSharedState(),
	}
}

// Execution carries the per-run collaborators every step receives: the run
// itself, the optional event feed, logger and metrics recorder, and the
// branch chosen by the router. Members of a parallel group share one
// Execution, so mutable fields are guarded.
type Execution struct {
	run      *RunContext
	events   chan<- Event
	logger   *slog.Logger
	recorder MetricsRecorder

	mu     sync.Mutex
	branch Branch
}

// NewExecution prepares the execution of run. Without options events are
// discarded, logs go to slog.Default and no metrics are recorded.
func NewExecution(run *RunContext, opts ...ExecutionOption) *Execution {
	exec := &Execution{
		run:      run,
		logger:   slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(exec)
	}
	return exec
}

// Run returns the run this execution belongs to.
func (exec *Execution) Run() *RunContext {
	return exec.run
}

// Branch returns the branch the router took, or BranchNone before the gate
// has decided.
func (exec *Execution) Branch() Branch {
	exec.mu.Lock()
	defer exec.mu.Unlock()
	return exec.branch
}

func (exec *Execution) setBranch(branch Branch) {
	exec.mu.Lock()
	exec.branch = branch
	exec.mu.Unlock()
}

// Logger returns the run-scoped logger, already carrying the run id.
func (exec *Execution) Logger() *slog.Logger {
	return exec.logger.With(slog.String(attrRunID, exec.run.ID))
}
