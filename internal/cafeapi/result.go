package cafeapi

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError describes a failed café API call: an error body, a non-2xx status,
// a transport failure or an open circuit.
type APIError struct {
	Status int
	Detail string
	Cause  error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Detail != "" && e.Status != 0:
		return fmt.Sprintf("cafeapi: %d %s", e.Status, e.Detail)
	case e.Detail != "":
		return "cafeapi: " + e.Detail
	case e.Cause != nil:
		return "cafeapi: " + e.Cause.Error()
	default:
		return fmt.Sprintf("cafeapi: status %d", e.Status)
	}
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Upstream reports whether the failure came from the café API answering
// rather than from the transport.
func (e *APIError) Upstream() bool {
	return e != nil && e.Status != 0
}

// ClientFault reports whether the café API rejected the request itself.
func (e *APIError) ClientFault() bool {
	return e != nil && e.Status >= http.StatusBadRequest && e.Status < http.StatusInternalServerError
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Result is the outcome of a café API call: either a value or an *APIError.
type Result[T any] struct {
	value T
	err   *APIError
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err wraps a failure. A nil error is replaced with a generic one so the
// result stays in the error state.
func Err[T any](err *APIError) Result[T] {
	if err == nil {
		err = &APIError{Detail: "unknown error"}
	}
	return Result[T]{err: err}
}

// IsOk reports whether the call succeeded.
func (r Result[T]) IsOk() bool { return r.err == nil }

// Value returns the value; the zero value on failure.
func (r Result[T]) Value() T { return r.value }

// Error returns the failure, or nil on success.
func (r Result[T]) Error() *APIError { return r.err }

// Unwrap converts the result to Go's (value, error) convention.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}
