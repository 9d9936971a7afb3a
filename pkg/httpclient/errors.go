package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/httputil"
)

// maxErrorBody bounds how much of an error body is read for diagnostics.
const maxErrorBody = 64 << 10

// statusSentinels maps the downstream statuses we give meaning to onto the
// local error categories.
var statusSentinels = map[int]error{
	http.StatusBadRequest:          apperrors.ErrInvalidInput,
	http.StatusUnprocessableEntity: apperrors.ErrInvalidInput,
	http.StatusUnauthorized:        apperrors.ErrUnauthorized,
	http.StatusForbidden:           apperrors.ErrForbidden,
	http.StatusNotFound:            apperrors.ErrNotFound,
	http.StatusConflict:            apperrors.ErrConflict,
	http.StatusServiceUnavailable:  apperrors.ErrServiceUnavail,
}

// ParseResponseError turns a non-2xx response from endpoint into an error
// and closes the body. A body in the {error:{code,message}} envelope keeps
// its code and message as an AppError; other 5xx answers and unstructured
// bodies become plain errors quoting status and body.
func ParseResponseError(resp *http.Response, endpoint string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", endpoint, resp.StatusCode, err)
	}

	var envelope httputil.Response
	if json.Unmarshal(body, &envelope) != nil || envelope.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return downstreamError(resp.StatusCode, envelope.Error, endpoint)
}

func downstreamError(status int, e *httputil.ErrorResponse, endpoint string) error {
	sentinel, known := statusSentinels[status]
	if !known && status >= http.StatusInternalServerError {
		return fmt.Errorf("%s server error (%d/%s): %s", endpoint, status, e.Code, e.Message)
	}

	msg := endpoint + ": " + e.Message
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		// The caller sent something the endpoint rejected; surface it as our
		// own bad input regardless of the downstream code.
		appErr := apperrors.InvalidInput(msg)
		appErr.Fields = e.Fields
		return appErr
	case http.StatusNotFound:
		return apperrors.NotFound(endpoint, e.Message)
	}
	return apperrors.New(status, e.Code, msg, sentinel)
}

// IsClientError reports whether status is a 4xx. Such answers are final:
// the same request would be rejected again.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
