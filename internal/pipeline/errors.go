package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/persona-shift/internal/generation"
)

// FailureMessage is the single user-facing notice for any aborted run.
const FailureMessage = "AI Processing failed. Please try again."

// Error kinds reported in logs and metrics. The controller treats them all alike.
const (
	KindMalformedRefinement = "malformed_refinement"
	KindEmptyResult         = "empty_result"
	KindSchema              = "schema"
	KindService             = "service"
	KindCanceled            = "canceled"
	KindTimeout             = "timeout"
	KindInternal            = "internal"
)

// MalformedRefinementError is returned when refinement yields the wrong number of professions
type MalformedRefinementError struct {
	Got  int
	Want int
}

func (e *MalformedRefinementError) Error() string {
	return fmt.Sprintf("malformed refinement: got %d professions, want %d", e.Got, e.Want)
}

// StepError records which step and item a run failed on
type StepError struct {
	Step  string
	Index int // -1 for refinement
	Field string
	Cause error
}

func (e *StepError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s failed: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("%s failed for %q (item %d): %v", e.Step, e.Field, e.Index+1, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// ErrorKind classifies a run error for diagnostics.
func ErrorKind(err error) string {
	var malformed *MalformedRefinementError
	var empty *generation.EmptyResultError
	var schema *generation.SchemaError
	var service *generation.ServiceError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &malformed):
		return KindMalformedRefinement
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &empty):
		return KindEmptyResult
	case errors.As(err, &schema):
		return KindSchema
	case errors.As(err, &service):
		return KindService
	default:
		return KindInternal
	}
}
