package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leofalp/polprofile/core/client"
	"github.com/leofalp/polprofile/core/overview"
	"github.com/leofalp/polprofile/patterns/pipeline"
)

// ErrEmptyQuery is returned by Start for a blank query.
var ErrEmptyQuery = errors.New("profile: empty query")

// Run outcomes reported to the metrics recorder.
const (
	OutcomeProfile      = "profile"
	OutcomeShortCircuit = "short_circuit"
	OutcomeFailed       = "failed"
	OutcomeTimeout      = "timeout"
)

// MetricsRecorder extends the pipeline recorder with run outcomes.
type MetricsRecorder interface {
	pipeline.MetricsRecorder
	RunFinished(outcome string, duration time.Duration)
}

// Result is the outcome of a successful run. Exactly one of Profile (full
// pipeline) and Message (short circuit) is set.
type Result struct {
	RunID  string
	Query  string
	Branch pipeline.Branch

	Profile *ProfileRecord
	Method  Method

	// SourceKey is the state key the profile was read from.
	SourceKey string

	// Message explains why no profile was produced on the short circuit.
	Message string

	// Disambiguation is the decoded gate output, when it was a record.
	Disambiguation *DisambiguationResult

	// Invalid holds the ProfileRecord.Validate error of an accepted profile
	// that breaks the profile invariants. The profile is still returned.
	Invalid error

	Usage overview.Summary
}

// ShortCircuited reports whether the router skipped the full pipeline.
func (result *Result) ShortCircuited() bool {
	return result.Branch == pipeline.BranchShortCircuit
}

// Runner drives runs of the profile workflow. It is safe for concurrent use;
// every run gets its own state and execution.
type Runner struct {
	router     *pipeline.Router
	logger     *slog.Logger
	recorder   MetricsRecorder
	runTimeout time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunTimeout bounds a whole run. On expiry every in-flight call is
// canceled and the run fails with ErrRunTimeout. Zero disables the bound.
func WithRunTimeout(timeout time.Duration) RunnerOption {
	return func(runner *Runner) {
		runner.runTimeout = timeout
	}
}

// WithLogger sets the logger used for run and step logs.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(runner *Runner) {
		if logger != nil {
			runner.logger = logger
		}
	}
}

// WithMetrics records step, token, branch and run metrics on recorder.
func WithMetrics(recorder MetricsRecorder) RunnerOption {
	return func(runner *Runner) {
		runner.recorder = recorder
	}
}

// NewRunner builds the workflow from catalog and binds it to c.
func NewRunner(catalog *Catalog, c *client.Client, opts ...RunnerOption) (*Runner, error) {
	router, err := Build(catalog, c)
	if err != nil {
		return nil, err
	}

	runner := &Runner{router: router, logger: slog.Default()}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Run is a run in progress. Events must be drained, or Wait called,
// for the run to make progress.
type Run struct {
	id     string
	events chan pipeline.Event
	done   chan struct{}

	result *Result
	err    error
}

// ID returns the run id.
func (run *Run) ID() string {
	return run.id
}

// Events returns the progress feed. It is closed when the run ends.
func (run *Run) Events() <-chan pipeline.Event {
	return run.events
}

// Wait discards any events not yet consumed and blocks until the run ends.
func (run *Run) Wait() (*Result, error) {
	for range run.events {
	}
	<-run.done
	return run.result, run.err
}

// Start launches a run for query in its own goroutine.
func (runner *Runner) Start(ctx context.Context, query string) (*Run, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	runContext := pipeline.NewRunContext(query)
	run := &Run{
		id:     runContext.ID,
		events: make(chan pipeline.Event, pipeline.DefaultEventBuffer),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(run.done)
		run.result, run.err = runner.execute(ctx, runContext, run.events)
	}()
	return run, nil
}

// Run executes a run to completion, discarding progress events.
func (runner *Runner) Run(ctx context.Context, query string) (*Result, error) {
	run, err := runner.Start(ctx, query)
	if err != nil {
		return nil, err
	}
	return run.Wait()
}

func (runner *Runner) execute(parent context.Context, runContext *pipeline.RunContext, events chan pipeline.Event) (*Result, error) {
	ctx := parent
	if runner.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, runner.runTimeout)
		defer cancel()
	}

	runOverview := overview.New()
	ctx = runOverview.ToContext(ctx)
	runOverview.StartExecution()

	logger := runner.logger.With(slog.String("pipeline.run_id", runContext.ID))
	options := []pipeline.ExecutionOption{pipeline.WithEvents(events), pipeline.WithLogger(runner.logger)}
	if runner.recorder != nil {
		options = append(options, pipeline.WithMetrics(runner.recorder))
	}
	exec := pipeline.NewExecution(runContext, options...)

	logger.InfoContext(ctx, "run started", slog.String("query", runContext.Query))
	err := runner.router.Run(ctx, exec, runContext.State)

	// Every emitter has returned once the router is done.
	close(events)
	runOverview.EndExecution()
	usage := runOverview.Summary()

	if err != nil {
		outcome := OutcomeFailed
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			outcome = OutcomeTimeout
			err = fmt.Errorf("%w after %s", ErrRunTimeout, runner.runTimeout)
		}
		runner.finish(ctx, logger, outcome, usage, err)
		return nil, err
	}

	result := &Result{
		RunID:  runContext.ID,
		Query:  runContext.Query,
		Branch: exec.Branch(),
		Usage:  usage,
	}
	result.Disambiguation = decodeDisambiguation(runContext.State, runner.router.Gate().OutputKey())

	if result.ShortCircuited() {
		message, _ := runContext.State.Get(runner.router.ShortCircuit().OutputKey())
		result.Message = strings.TrimSpace(fmt.Sprint(message))
		runner.finish(ctx, logger, OutcomeShortCircuit, usage, nil)
		return result, nil
	}

	extracted, err := ExtractFromState(runContext.State.Snapshot())
	if err != nil {
		runner.finish(ctx, logger, OutcomeFailed, usage, err)
		return nil, err
	}
	result.Profile = extracted.Profile
	result.Method = extracted.Method
	result.SourceKey = extracted.Key

	if invalid := extracted.Profile.Validate(); invalid != nil {
		result.Invalid = invalid
		logger.WarnContext(ctx, "profile breaks invariants",
			slog.String("source_key", extracted.Key),
			slog.String("error", invalid.Error()),
		)
	}
	if extracted.Method == MethodPlainText {
		logger.WarnContext(ctx, "profile wrapped from plain text", slog.String("source_key", extracted.Key))
	}

	runner.finish(ctx, logger, OutcomeProfile, usage, nil)
	return result, nil
}

// finish records the outcome and logs the usage summary of the run.
func (runner *Runner) finish(ctx context.Context, logger *slog.Logger, outcome string, usage overview.Summary, err error) {
	if runner.recorder != nil {
		runner.recorder.RunFinished(outcome, usage.Duration)
	}

	attrs := []any{
		slog.String("outcome", outcome),
		slog.Duration("duration", usage.Duration),
		slog.Int("requests", usage.Requests),
		slog.Int("prompt_tokens", usage.TotalUsage.PromptTokens),
		slog.Int("completion_tokens", usage.TotalUsage.CompletionTokens),
		slog.Int("total_tokens", usage.TotalUsage.TotalTokens),
	}
	if err != nil {
		logger.ErrorContext(ctx, "run failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	logger.InfoContext(ctx, "run completed", attrs...)
}

func decodeDisambiguation(state *pipeline.SharedState, key string) *DisambiguationResult {
	value, ok := state.Get(key)
	if !ok {
		return nil
	}
	record, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return nil
	}
	var result DisambiguationResult
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil
	}
	return &result
}
