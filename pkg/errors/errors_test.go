package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("tour", "old-town-walk"), CodeNotFound, http.StatusNotFound, ErrNotFound},
		{"invalid input", InvalidInput("rating must be between 1 and 5"), CodeInvalidInput, http.StatusBadRequest, ErrInvalidInput},
		{"invalid parameter", InvalidParameter("session id", "nope"), CodeInvalidParameter, http.StatusBadRequest, ErrInvalidInput},
		{"validation", Validation(map[string]string{"rating": "is required"}), CodeValidation, http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("invalid token"), CodeUnauthorized, http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("service token required"), CodeForbidden, http.StatusForbidden, ErrForbidden},
		{"conflict", Conflict("select a rating before submitting"), CodeConflict, http.StatusConflict, ErrConflict},
		{"unavailable", ServiceUnavailable("review persistence is not configured"), CodeServiceUnavailable, http.StatusServiceUnavailable, ErrServiceUnavail},
		{"internal", Internal(nil), CodeInternal, http.StatusInternalServerError, ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestNotFound_MessageNamesResource(t *testing.T) {
	err := NotFound("tour", "old-town-walk")
	assert.Equal(t, "tour with id old-town-walk not found", err.Message)
	assert.Equal(t, "NOT_FOUND: tour with id old-town-walk not found: resource not found", err.Error())
}

func TestInvalidParameter_QuotesValue(t *testing.T) {
	err := InvalidParameter("session id", "abc")
	assert.Equal(t, `invalid session id: "abc"`, err.Message)
}

func TestInternal_HidesCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused")
	err := Internal(cause)

	assert.Equal(t, "an internal error occurred", err.Message)
	assert.NotContains(t, err.Message, "10.0.0.5")
	assert.ErrorIs(t, err, cause)
}

func TestAppError_ErrorWithoutCause(t *testing.T) {
	err := &AppError{Code: "NOT_FOUND", Message: "tour not found"}
	assert.Equal(t, "NOT_FOUND: tour not found", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestFrom(t *testing.T) {
	conflict := Conflict("session was modified concurrently, please retry")

	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"app error passes through", conflict, CodeConflict, http.StatusConflict},
		{"wrapped app error", fmt.Errorf("submit: %w", conflict), CodeConflict, http.StatusConflict},
		{"bare not found", fmt.Errorf("load: %w", ErrNotFound), CodeNotFound, http.StatusNotFound},
		{"bare invalid input", fmt.Errorf("rating: %w", ErrInvalidInput), CodeInvalidInput, http.StatusBadRequest},
		{"bare conflict", ErrConflict, CodeConflict, http.StatusConflict},
		{"bare unauthorized", ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
		{"bare forbidden", ErrForbidden, CodeForbidden, http.StatusForbidden},
		{"bare unavailable", ErrServiceUnavail, CodeServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestFrom_ReturnsSameInstance(t *testing.T) {
	err := NotFound("session", "x")
	assert.Same(t, err, From(fmt.Errorf("get: %w", err)))
}

func TestFrom_UnknownErrorKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	got := From(cause)
	assert.ErrorIs(t, got, cause)
	assert.Equal(t, "an internal error occurred", got.Message)
}

func TestFieldSummary(t *testing.T) {
	err := Validation(map[string]string{
		"rating":  "must be at most 5",
		"content": "must not be blank",
	})
	assert.Equal(t, "content: must not be blank; rating: must be at most 5", err.FieldSummary())
	assert.Empty(t, InvalidInput("x").FieldSummary())
}
