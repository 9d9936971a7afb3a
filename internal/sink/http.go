package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/TourGo/internal/domain"
	"github.com/utafrali/TourGo/pkg/httpclient"
)

const endpointName = "review-endpoint"

// Doer executes outbound HTTP requests. *httpclient.CircuitBreakerClient
// satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TokenSource returns a bearer token for outbound calls.
type TokenSource func() (string, error)

// HTTP posts reviews to a remote review endpoint at
// {baseURL}/api/v1/review/{tourID}.
type HTTP struct {
	client  Doer
	baseURL string
	token   TokenSource
}

// NewHTTP creates an HTTP sink. token may be nil for unauthenticated endpoints.
func NewHTTP(client Doer, baseURL string, token TokenSource) *HTTP {
	return &HTTP{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Persist implements Sink.
func (h *HTTP) Persist(ctx context.Context, tourID string, review domain.Review) error {
	body, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}

	endpoint := h.baseURL + "/api/v1/review/" + url.PathEscape(tourID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create review request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if h.token != nil {
		tok, err := h.token()
		if err != nil {
			return fmt.Errorf("review endpoint token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := h.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("post review to %s: %w", endpointName, err)
	}
	if resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, endpointName)
	}
	_ = resp.Body.Close()

	return nil
}
