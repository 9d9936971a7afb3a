package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/TourGo/pkg/errors"
)

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func response(status int, body string) (*http.Response, *trackedBody) {
	b := &trackedBody{Reader: strings.NewReader(body)}
	return &http.Response{StatusCode: status, Body: b}, b
}

func envelope(code, message string) string {
	return `{"error":{"code":"` + code + `","message":"` + message + `"}}`
}

func TestParseResponseError_Structured(t *testing.T) {
	tests := []struct {
		name     string
		status     int
		body       string
		wantStatus int
		code       string
		sentinel   error
	}{
		{"not found", http.StatusNotFound, envelope("NOT_FOUND", "tour not found"), http.StatusNotFound, "NOT_FOUND", apperrors.ErrNotFound},
		{"bad request", http.StatusBadRequest, envelope("VALIDATION_ERROR", "rating out of range"), http.StatusBadRequest, "INVALID_INPUT", apperrors.ErrInvalidInput},
		{"unprocessable", http.StatusUnprocessableEntity, envelope("UNPROCESSABLE", "rating out of range"), http.StatusBadRequest, "INVALID_INPUT", apperrors.ErrInvalidInput},
		{"unauthorized", http.StatusUnauthorized, envelope("UNAUTHORIZED", "invalid token"), http.StatusUnauthorized, "UNAUTHORIZED", apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, envelope("FORBIDDEN", "service token required"), http.StatusForbidden, "FORBIDDEN", apperrors.ErrForbidden},
		{"conflict", http.StatusConflict, envelope("CONFLICT", "duplicate review"), http.StatusConflict, "CONFLICT", apperrors.ErrConflict},
		{"unavailable", http.StatusServiceUnavailable, envelope("SERVICE_UNAVAILABLE", "review persistence is not configured"), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", apperrors.ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := response(tt.status, tt.body)
			err := ParseResponseError(resp, "review-endpoint")

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantStatus, appErr.Status)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Contains(t, appErr.Message, "review-endpoint")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, body.closed)
		})
	}
}

func TestParseResponseError_KeepsValidationFields(t *testing.T) {
	resp, _ := response(http.StatusBadRequest,
		`{"error":{"code":"VALIDATION_ERROR","message":"request validation failed","fields":{"rating":"must be at most 5"}}}`)

	appErr := apperrors.From(ParseResponseError(resp, "review-endpoint"))
	assert.Equal(t, map[string]string{"rating": "must be at most 5"}, appErr.Fields)
}

func TestParseResponseError_UnmappedClientStatusKeepsCode(t *testing.T) {
	resp, _ := response(http.StatusTooManyRequests, envelope("RATE_LIMITED", "slow down"))
	err := ParseResponseError(resp, "review-endpoint")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
	assert.Equal(t, "RATE_LIMITED", appErr.Code)
}

func TestParseResponseError_PlainErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []string
	}{
		{"structured 500", http.StatusInternalServerError, envelope("INTERNAL_ERROR", "disk full"), []string{"review-endpoint", "500", "disk full"}},
		{"structured 502", http.StatusBadGateway, envelope("BAD_GATEWAY", "upstream error"), []string{"502", "BAD_GATEWAY"}},
		{"text body", http.StatusBadGateway, "Bad Gateway: upstream connection refused\n", []string{"502", "upstream connection refused"}},
		{"html body", http.StatusBadGateway, "<html><h1>502 Bad Gateway</h1></html>", []string{"502", "<h1>"}},
		{"empty body", http.StatusInternalServerError, "", []string{"review-endpoint", "500"}},
		{"null error", http.StatusBadRequest, `{"error":null}`, []string{"400"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := response(tt.status, tt.body)
			err := ParseResponseError(resp, "review-endpoint")
			require.Error(t, err)

			var appErr *apperrors.AppError
			assert.False(t, errors.As(err, &appErr))
			for _, s := range tt.want {
				assert.Contains(t, err.Error(), s)
			}
			assert.True(t, body.closed)
		})
	}
}

func TestIsClientError(t *testing.T) {
	for status, want := range map[int]bool{
		200: false, 302: false, 399: false,
		400: true, 404: true, 409: true, 429: true, 499: true,
		500: false, 503: false,
	} {
		assert.Equal(t, want, IsClientError(status), "status %d", status)
	}
}
