package utils

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// APIError is an error that carries the HTTP status and optional details to render in the error envelope.
type APIError struct {
	Status  int
	Message string
	Errors  any

	cause error
}

// NewAPIError creates an APIError and records the call stack for development responses.
func NewAPIError(status int, message string, details ...any) *APIError {
	e := &APIError{Status: status, Message: message, cause: errors.New(message)}
	if len(details) > 0 {
		e.Errors = details[0]
	}
	return e
}

// NotFound reports an unmatched route.
func NotFound(originalURL string) *APIError {
	return NewAPIError(http.StatusNotFound, "Resource not found - "+originalURL)
}

// Internal wraps an unexpected failure. The cause is kept for logs; clients see a generic message.
func Internal(cause error) *APIError {
	if cause == nil {
		cause = errors.New("internal error")
	}
	return &APIError{
		Status:  http.StatusInternalServerError,
		Message: "Internal Server Error",
		cause:   errors.WithStack(cause),
	}
}

func (e *APIError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status to respond with.
func (e *APIError) StatusCode() int {
	return e.Status
}

// Unwrap exposes the underlying cause.
func (e *APIError) Unwrap() error {
	return errors.Cause(e.cause)
}

// Stack renders the cause with the stack recorded at creation.
func (e *APIError) Stack() string {
	return fmt.Sprintf("%+v", e.cause)
}

// StackOf renders any error with its stack when one was recorded by pkg/errors.
func StackOf(err error) string {
	if s, ok := err.(interface{ Stack() string }); ok {
		return s.Stack()
	}
	return fmt.Sprintf("%+v", errors.WithStack(err))
}
