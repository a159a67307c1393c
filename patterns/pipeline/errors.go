package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyExists is returned when a key of the shared state is written twice.
	ErrKeyExists = errors.New("pipeline: state key already written")

	// ErrEmptyKey is returned when a write has no key.
	ErrEmptyKey = errors.New("pipeline: empty state key")

	// ErrInvalidPipeline wraps every construction-time validation error.
	ErrInvalidPipeline = errors.New("pipeline: invalid definition")

	// ErrEmptyOutput means the model answered with no usable text.
	ErrEmptyOutput = errors.New("empty model output")

	// ErrMalformedOutput means a structured stage did not get a JSON object back.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrSchemaViolation means the decoded output does not match the stage schema.
	ErrSchemaViolation = errors.New("output violates schema")

	// ErrRefused means the model or a safety filter declined to answer.
	ErrRefused = errors.New("model refused to answer")
)

// GenerationError reports the failure of a single stage. Err is one of the
// output sentinels above, or the underlying provider/transport error.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GroupFailure reports every member of a ParallelGroup that failed, in
// declaration order. No member output is committed when a group fails.
type GroupFailure struct {
	Group    string
	Failures []*GenerationError
}

func (e *GroupFailure) Error() string {
	stages := make([]string, len(e.Failures))
	for i, failure := range e.Failures {
		stages[i] = failure.Stage
	}
	return fmt.Sprintf("group %s: %d member(s) failed [%s]: %v",
		e.Group, len(e.Failures), strings.Join(stages, ", "), errors.Join(e.Unwrap()...))
}

// Unwrap exposes the member failures to errors.Is and errors.As.
func (e *GroupFailure) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, failure := range e.Failures {
		errs[i] = failure
	}
	return errs
}

// Failed reports whether the named member is among the failures.
func (e *GroupFailure) Failed(stage string) bool {
	for _, failure := range e.Failures {
		if failure.Stage == stage {
			return true
		}
	}
	return false
}

// PipelineAbort reports the step at which a sequential pipeline stopped.
// Unwrap yields the step's error unchanged.
type PipelineAbort struct {
	Pipeline string
	Step     string
	Err      error
}

func (e *PipelineAbort) Error() string {
	return fmt.Sprintf("pipeline %s aborted at %s: %v", e.Pipeline, e.Step, e.Err)
}

func (e *PipelineAbort) Unwrap() error {
	return e.Err
}

// asGenerationError attributes err to stage unless it already names one.
func asGenerationError(stage string, err error) *GenerationError {
	var generationErr *GenerationError
	if errors.As(err, &generationErr) && generationErr.Stage == stage {
		return generationErr
	}
	return &GenerationError{Stage: stage, Err: err}
}
