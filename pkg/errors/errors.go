package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Sentinels that AppErrors wrap. Callers match categories with errors.Is.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Error codes carried in the JSON error envelope.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidParameter   = "INVALID_PARAMETER"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

const internalMessage = "an internal error occurred"

// AppError is an error with a stable code, a client-safe message and the
// HTTP status it maps to. Fields holds per-field messages for validation
// failures.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError for statuses without a dedicated constructor.
func New(status int, code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: cause}
}

// NotFound creates a 404 error for resource (e.g. "tour", "session").
func NotFound(resource, id string) *AppError {
	return New(http.StatusNotFound, CodeNotFound,
		fmt.Sprintf("%s with id %s not found", resource, id), ErrNotFound)
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return New(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

// InvalidParameter creates a 400 error for a malformed path or query value.
func InvalidParameter(name, value string) *AppError {
	return New(http.StatusBadRequest, CodeInvalidParameter,
		fmt.Sprintf("invalid %s: %q", name, value), ErrInvalidInput)
}

// Validation creates a 400 error listing the offending fields.
func Validation(fields map[string]string) *AppError {
	e := New(http.StatusBadRequest, CodeValidation, "request validation failed", ErrInvalidInput)
	e.Fields = fields
	return e
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

// Conflict creates a 409 error for requests that clash with the current
// state of a resource, such as submitting a review before a rating is chosen.
func Conflict(message string) *AppError {
	return New(http.StatusConflict, CodeConflict, message, ErrConflict)
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return New(http.StatusServiceUnavailable, CodeServiceUnavailable, message, ErrServiceUnavail)
}

// Internal creates a 500 error. The cause is kept for logs only.
func Internal(err error) *AppError {
	if err == nil {
		err = ErrInternal
	}
	return New(http.StatusInternalServerError, CodeInternal, internalMessage, err)
}

// From converts any error into an AppError. An AppError anywhere in the
// chain wins; bare sentinels map to their category; everything else is
// Internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return New(http.StatusNotFound, CodeNotFound, ErrNotFound.Error(), err)
	case errors.Is(err, ErrConflict):
		return New(http.StatusConflict, CodeConflict, err.Error(), err)
	case errors.Is(err, ErrInvalidInput):
		return New(http.StatusBadRequest, CodeInvalidInput, err.Error(), err)
	case errors.Is(err, ErrUnauthorized):
		return New(http.StatusUnauthorized, CodeUnauthorized, ErrUnauthorized.Error(), err)
	case errors.Is(err, ErrForbidden):
		return New(http.StatusForbidden, CodeForbidden, ErrForbidden.Error(), err)
	case errors.Is(err, ErrServiceUnavail):
		return New(http.StatusServiceUnavailable, CodeServiceUnavailable, ErrServiceUnavail.Error(), err)
	default:
		return Internal(err)
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	return From(err).Status
}

// FieldSummary renders Fields as "a: msg; b: msg" in name order, for logs.
func (e *AppError) FieldSummary() string {
	if len(e.Fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return strings.Join(parts, "; ")
}
