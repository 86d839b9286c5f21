package generation

import (
	"errors"
	"fmt"
)

// ErrNoImageReturned is wrapped by EmptyResultError.
var ErrNoImageReturned = errors.New("no image returned from model")

// ServiceError represents a transport or remote failure of a generation call
type ServiceError struct {
	Op      string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: service call failed: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: service call failed: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// SchemaError represents a response that does not match the expected shape
type SchemaError struct {
	Op      string
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: schema error: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: schema error: %s", e.Op, e.Message)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// EmptyResultError is returned when an image request succeeds but carries no image
type EmptyResultError struct {
	Field string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("generate_image: %v for %q", ErrNoImageReturned, e.Field)
}

func (e *EmptyResultError) Unwrap() error {
	return ErrNoImageReturned
}
