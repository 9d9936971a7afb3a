package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/logger"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]int{"totalRating": 8})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"totalRating":8}}`, rec.Body.String())
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"app error", apperrors.NotFound("tour", "old-town-walk"), http.StatusNotFound, "NOT_FOUND", "tour with id old-town-walk not found"},
		{"wrapped app error", fmt.Errorf("submit: %w", apperrors.Conflict("select a rating before submitting")), http.StatusConflict, "CONFLICT", "select a rating before submitting"},
		{"bare sentinel", apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
		{"unknown error", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := bufferLogger()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/tours/x", nil)

			WriteError(rec, req, tt.err, l)

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeEnvelope(t, rec)
			assert.Nil(t, resp.Data)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.msg, resp.Error.Message)
		})
	}
}

func TestWriteError_ValidationFields(t *testing.T) {
	l, _ := bufferLogger()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/x/rating", nil)

	WriteError(rec, req, apperrors.Validation(map[string]string{"rating": "must be at most 5"}), l)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, map[string]string{"rating": "must be at most 5"}, resp.Error.Fields)
}

func TestWriteError_LogsOnlyServerErrors(t *testing.T) {
	l, buf := bufferLogger()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)

	WriteError(httptest.NewRecorder(), req, apperrors.InvalidInput("bad"), l)
	assert.Empty(t, buf.String())

	WriteError(httptest.NewRecorder(), req, errors.New("connection reset"), l)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), "connection reset")
	assert.Contains(t, buf.String(), `"path":"/api/v1/tours"`)
}

func TestWriteError_UnavailableLogsWarn(t *testing.T) {
	l, buf := bufferLogger()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/review/x", nil)

	WriteError(httptest.NewRecorder(), req, apperrors.ServiceUnavailable("review persistence is not configured"), l)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestWriteError_PrefersRequestLogger(t *testing.T) {
	fallback, fallbackBuf := bufferLogger()
	scoped, scopedBuf := bufferLogger()
	ctx := logger.NewContext(context.Background(), scoped)
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	WriteError(httptest.NewRecorder(), req, errors.New("boom"), fallback)

	assert.Empty(t, fallbackBuf.String())
	assert.Contains(t, scopedBuf.String(), "boom")
}

func TestWriteError_RequestID(t *testing.T) {
	l, _ := bufferLogger()

	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	WriteError(rec, req, apperrors.ErrNotFound, l)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "corr-123", resp.Error.RequestID)

	rec = httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperrors.ErrNotFound, l)
	assert.NotContains(t, rec.Body.String(), "request_id")
}

func TestParseUUID(t *testing.T) {
	id, err := ParseUUID("session id", "550E8400-E29B-41D4-A716-446655440000")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	for _, bad := range []string{"", "not-a-uuid", "550e8400"} {
		_, err := ParseUUID("session id", bad)
		require.Error(t, err, bad)
		appErr := apperrors.From(err)
		assert.Equal(t, "INVALID_PARAMETER", appErr.Code)
		assert.Equal(t, http.StatusBadRequest, appErr.Status)
	}
}
