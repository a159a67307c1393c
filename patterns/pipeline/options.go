package pipeline

import "log/slog"

// ExecutionOption configures an Execution.
type ExecutionOption func(*Execution)

// WithEvents publishes progress events on events. The channel should be
// buffered (see DefaultEventBuffer) and drained for the whole run; the
// caller closes it after the run returns.
func WithEvents(events chan<- Event) ExecutionOption {
	return func(exec *Execution) {
		exec.events = events
	}
}

// WithLogger replaces slog.Default for this run.
func WithLogger(logger *slog.Logger) ExecutionOption {
	return func(exec *Execution) {
		if logger != nil {
			exec.logger = logger
		}
	}
}

// WithMetrics records step outcomes, token usage and branches on recorder.
func WithMetrics(recorder MetricsRecorder) ExecutionOption {
	return func(exec *Execution) {
		if recorder != nil {
			exec.recorder = recorder
		}
	}
}
