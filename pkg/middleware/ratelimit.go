package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/httputil"
)

var rateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected with 429 by the per-client rate limiter",
	},
	[]string{"route"},
)

// RateLimitConfig sizes a per-client token bucket. An RPS of zero or less
// disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IdleTTL is how long a client's bucket is kept after its last request.
	IdleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// buckets holds one limiter per client address. Idle entries are swept on
// access, at most once per ttl.
type buckets struct {
	mu        sync.Mutex
	byClient  map[string]*bucket
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newBuckets(cfg RateLimitConfig) *buckets {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	burst := max(cfg.Burst, 1)
	return &buckets{
		byClient: make(map[string]*bucket),
		limit:    rate.Limit(cfg.RPS),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (b *buckets) allow(client string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if now.Sub(b.lastSweep) > b.ttl {
		for k, v := range b.byClient {
			if now.Sub(v.lastSeen) > b.ttl {
				delete(b.byClient, k)
			}
		}
		b.lastSweep = now
	}

	bk, ok := b.byClient[client]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.byClient[client] = bk
	}
	bk.lastSeen = now
	return bk.limiter.AllowN(now, 1)
}

func (b *buckets) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byClient)
}

// RateLimit limits each client address to cfg.RPS requests per second with
// bursts of cfg.Burst. Rejected requests get 429 RATE_LIMITED and a
// Retry-After header.
func RateLimit(cfg RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	store := newBuckets(cfg)
	retryAfter := strconv.Itoa(int(math.Ceil(1 / cfg.RPS)))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := r.RemoteAddr
			if addr, ok := clientAddr(r.RemoteAddr); ok {
				client = addr.String()
			}

			if !store.allow(client) {
				rateLimitedTotal.WithLabelValues(routePattern(r)).Inc()
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client", client),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", retryAfter)
				httputil.WriteError(w, r, apperrors.New(http.StatusTooManyRequests,
					"RATE_LIMITED", "too many requests", nil), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
