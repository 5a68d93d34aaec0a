// Package domain defines core types, interfaces, and errors for the SDMX explorer.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input, typically a selection constraint violation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// FetchError indicates a dataflow could not be retrieved from the SDMX service.
// Status is the last HTTP status observed (0 when the transport failed).
type FetchError struct {
	Dataflow string
	Status   int
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("fetch dataflow %s: status %d: %v", e.Dataflow, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch dataflow %s: %v", e.Dataflow, e.Err)
	default:
		return fmt.Sprintf("fetch dataflow %s: failed with status code %d", e.Dataflow, e.Status)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// MissingColumnError indicates an observation table lacks a column the caller needs.
type MissingColumnError struct {
	Dataflow string
	Column   string
}

func (e *MissingColumnError) Error() string {
	if e.Dataflow == "" {
		return fmt.Sprintf("missing column %q", e.Column)
	}
	return fmt.Sprintf("dataflow %s: missing column %q", e.Dataflow, e.Column)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrFetch creates a FetchError for the given dataflow.
func ErrFetch(dataflow string, status int, url string, err error) *FetchError {
	return &FetchError{Dataflow: dataflow, Status: status, URL: url, Err: err}
}

// ErrMissingColumn creates a MissingColumnError.
func ErrMissingColumn(dataflow, column string) *MissingColumnError {
	return &MissingColumnError{Dataflow: dataflow, Column: column}
}
