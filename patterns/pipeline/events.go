package pipeline

import (
	"context"
	"time"
)

// DefaultEventBuffer is the channel capacity drivers should use for the
// event feed. Emission blocks once the buffer is full.
const DefaultEventBuffer = 64

// EventStatus identifies what happened to a step.
type EventStatus string

const (
	EventStarted   EventStatus = "started"
	EventCompleted EventStatus = "completed"
	EventFailed    EventStatus = "failed"

	// EventBranch is emitted once per routed run, after the gate decided.
	// The Branch field carries the decision.
	EventBranch EventStatus = "branch"
)

// Event is one entry of the progress feed of a run.
type Event struct {
	RunID  string
	Stage  string
	Status EventStatus

	// Branch is set on EventBranch events only.
	Branch Branch

	// Err is set on EventFailed events only.
	Err error

	Time time.Time
}

// emit publishes event on the execution's feed, if any. It blocks until the
// event is consumed or ctx is done, in which case the event is dropped.
func (exec *Execution) emit(ctx context.Context, event Event) {
	if exec.events == nil {
		return
	}

	event.RunID = exec.run.ID
	event.Time = time.Now()

	select {
	case exec.events <- event:
	case <-ctx.Done():
	}
}
