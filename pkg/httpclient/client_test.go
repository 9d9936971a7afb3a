package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func fastClient(retries int) *Client {
	return New(Config{
		Timeout:         5 * time.Second,
		MaxRetries:      retries,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    5 * time.Millisecond,
		MaxConnsPerHost: 10,
		UserAgent:       "tourgo-test",
	})
}

// statusSequence answers with the given statuses in order, repeating the
// last one, and counts requests.
func statusSequence(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var n int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(atomic.AddInt32(&n, 1)) - 1
		w.WriteHeader(statuses[min(i, len(statuses)-1)])
	}))
	t.Cleanup(srv.Close)
	return srv, &n
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryWaitMin)
	assert.Equal(t, 5*time.Second, cfg.RetryWaitMax)
	assert.Equal(t, "tourgo", cfg.UserAgent)
}

func TestDo_RetryPolicy(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		retries  int
		want     int
		attempts int32
	}{
		{"success first time", []int{200}, 3, 200, 1},
		{"recovers from 503", []int{503, 503, 201}, 3, 201, 3},
		{"retries 429", []int{429, 200}, 3, 200, 2},
		{"gives up with last answer", []int{502}, 2, 502, 3},
		{"501 is final", []int{501}, 3, 501, 1},
		{"4xx is final", []int{400}, 3, 400, 1},
		{"no retries configured", []int{503, 200}, 0, 503, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, n := statusSequence(t, tt.statuses...)

			resp, err := fastClient(tt.retries).Get(context.Background(), srv.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, tt.attempts, atomic.LoadInt32(n))
		})
	}
}

func TestDo_RetryReplaysPostBody(t *testing.T) {
	var bodies []string
	var n int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if atomic.AddInt32(&n, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	resp, err := fastClient(2).Post(context.Background(), srv.URL, "application/json", strings.NewReader(`{"rating":5}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{`{"rating":5}`, `{"rating":5}`}, bodies)
}

func TestDo_HonoursRetryAfterUpToCap(t *testing.T) {
	var n int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	start := time.Now()
	resp, err := fastClient(1).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Less(t, time.Since(start), time.Second, "Retry-After must be capped at RetryWaitMax")
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	srv, _ := statusSequence(t, http.StatusServiceUnavailable)
	client := New(Config{
		Timeout:         5 * time.Second,
		MaxRetries:      10,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    500 * time.Millisecond,
		MaxConnsPerHost: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_SetsHeaders(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var gotUA, gotParent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotParent = r.Header.Get("traceparent")
	}))
	defer srv.Close()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	resp, err := fastClient(0).Get(ctx, srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "tourgo-test", gotUA)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", gotParent)
}

func TestGet_InvalidURL(t *testing.T) {
	_, err := fastClient(0).Get(context.Background(), "://invalid")
	require.Error(t, err)
}

func TestRetryAfter(t *testing.T) {
	header := func(v string) *http.Response {
		return &http.Response{Header: http.Header{"Retry-After": []string{v}}}
	}

	d, ok := retryAfter(header("3"))
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	d, ok = retryAfter(header(time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)))
	assert.True(t, ok)
	assert.Zero(t, d)

	_, ok = retryAfter(header("soon"))
	assert.False(t, ok)
	_, ok = retryAfter(nil)
	assert.False(t, ok)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(context.DeadlineExceeded))
	assert.False(t, isRetryableError(&url.Error{Op: "Post", URL: "http://x", Err: context.Canceled}))
	assert.False(t, isRetryableError(errors.New("plain")))
	assert.True(t, isRetryableError(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}))
}

func TestAddJitter(t *testing.T) {
	const base = time.Second
	lo, hi := time.Duration(float64(base)*0.75), time.Duration(float64(base)*1.25)

	var minVal, maxVal time.Duration = hi, lo
	for range 200 {
		d := addJitter(base)
		require.GreaterOrEqual(t, d, lo)
		require.LessOrEqual(t, d, hi)
		minVal, maxVal = min(minVal, d), max(maxVal, d)
	}
	assert.Greater(t, maxVal-minVal, 50*time.Millisecond, "jitter should spread retries")
	assert.Zero(t, addJitter(0))
}
