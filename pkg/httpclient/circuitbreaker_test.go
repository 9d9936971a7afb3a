package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBreaker(t *testing.T, name string, timeout time.Duration) *CircuitBreakerClient {
	t.Helper()
	cfg := DefaultCircuitBreakerConfig(name)
	cfg.MinRequests = 3
	cfg.Timeout = timeout
	client := New(Config{Timeout: 5 * time.Second, MaxRetries: 0, MaxConnsPerHost: 10})
	return NewCircuitBreakerClient(client, cfg, testLogger())
}

func postReview(t *testing.T, cb *CircuitBreakerClient, ctx context.Context, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/api/v1/review/t1", http.NoBody)
	require.NoError(t, err)
	resp, err := cb.Do(ctx, req)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return resp, err
}

func statusServer(status *atomic.Int32, hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(int(status.Load()))
	}))
}

func TestCircuitBreaker_PassesSuccess(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusCreated)
	srv := statusServer(&status, nil)
	defer srv.Close()

	cb := newBreaker(t, "cb-success", time.Second)
	resp, err := postReview(t, cb, context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ServerErrorsTripAndReturnResponse(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusBadGateway)
	srv := statusServer(&status, &hits)
	defer srv.Close()

	cb := newBreaker(t, "cb-trip", time.Minute)
	for i := 0; i < 3; i++ {
		resp, err := postReview(t, cb, context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := postReview(t, cb, context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "cb-trip")
	assert.Equal(t, int32(3), hits.Load(), "open breaker must not contact the remote")
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	srv := statusServer(&status, nil)
	defer srv.Close()

	cb := newBreaker(t, "cb-4xx", time.Minute)
	for i := 0; i < 5; i++ {
		resp, err := postReview(t, cb, context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, uint32(0), cb.Counts().TotalFailures)
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	srv := statusServer(&status, nil)
	defer srv.Close()

	cb := newBreaker(t, "cb-recover", 100*time.Millisecond)
	for i := 0; i < 3; i++ {
		_, _ = postReview(t, cb, context.Background(), srv.URL)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)
	status.Store(http.StatusCreated)

	resp, err := postReview(t, cb, context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_CanceledCallsAreNotFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cb := newBreaker(t, "cb-cancel", time.Minute)
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := postReview(t, cb, ctx, srv.URL)
		require.Error(t, err)
		cancel()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("review-endpoint")
	assert.Equal(t, "review-endpoint", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.InDelta(t, 0.5, cfg.FailureRatio, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}
