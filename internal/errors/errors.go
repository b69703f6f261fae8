// Package errors provides structured error handling with context propagation and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates resource not found (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeCooldown indicates a rate-limited actuation (HTTP 429). Not a
	// true failure; carries retry metadata.
	TypeCooldown ErrorType = "cooldown"
	// TypeInternal indicates server-side error, including storage failures (HTTP 500)
	TypeInternal ErrorType = "internal"
	// TypeExternal indicates external service error, e.g. the actuator (HTTP 502)
	TypeExternal ErrorType = "external"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any

	// RetryAfter is set for cooldown errors, in whole seconds.
	RetryAfter int64
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeCooldown:
		return http.StatusTooManyRequests
	case TypeExternal:
		return http.StatusBadGateway
	case TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ToResponse returns the JSON body for this error. Internal detail is never
// leaked beyond logs; everything else surfaces its message and context.
func (e *Error) ToResponse() map[string]any {
	if e.Type == TypeInternal {
		return map[string]any{"message": "Internal server error"}
	}

	resp := map[string]any{"message": e.Message}
	if e.Type == TypeCooldown {
		resp["retryAfter"] = e.RetryAfter
	}
	for k, v := range e.Context {
		resp[k] = v
	}
	return resp
}

// WithContext adds a key-value pair to the error context.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// --- Constructors ---

func ValidationError(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

func NotFoundError(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message}
}

func CooldownError(message string, retryAfter int64) *Error {
	return &Error{Type: TypeCooldown, Message: message, RetryAfter: retryAfter}
}

func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause}
}

func ExternalError(message string, cause error) *Error {
	return &Error{Type: TypeExternal, Message: message, Cause: cause}
}

// AsStructuredError converts any error to a structured Error. Unknown
// errors become internal errors.
func AsStructuredError(err error) *Error {
	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}
	return &Error{Type: TypeInternal, Message: "unexpected error", Cause: err}
}
