package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/TourGo/internal/handler/ws"
	"github.com/utafrali/TourGo/internal/service"
	"github.com/utafrali/TourGo/pkg/health"
	"github.com/utafrali/TourGo/pkg/middleware"
)

// tourCacheMaxAge is how long clients may cache tour reads.
const tourCacheMaxAge = time.Minute

// RouterConfig holds the router settings that come from configuration.
type RouterConfig struct {
	ServiceName       string
	CORS              middleware.CORSConfig
	PprofAllowedCIDRs []string

	// SubmitRateLimit throttles session creation and review submission per
	// client. The zero value disables it.
	SubmitRateLimit middleware.RateLimitConfig

	// TokenValidator verifies bearer tokens. Nil disables authentication:
	// every visitor is a guest and the persistence endpoint is open.
	TokenValidator middleware.TokenValidator
}

// NewRouter creates a chi router with all tour service routes registered.
func NewRouter(
	tourService *service.TourService,
	hub *ws.Hub,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	if cfg.TokenValidator != nil {
		r.Use(middleware.OptionalAuth(cfg.TokenValidator))
	}
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	tourHandler := NewTourHandler(tourService, logger)
	sessionHandler := NewSessionHandler(tourService, hub, logger)
	reviewHandler := NewReviewHandler(tourService, logger)
	throttle := middleware.RateLimit(cfg.SubmitRateLimit, logger)

	// api applies the middleware shared by the JSON endpoints. The session
	// websocket stays outside it so the connection can be hijacked and held
	// open.
	api := func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(requireJSON(logger))
	}

	r.Route("/api/v1/tours", func(r chi.Router) {
		api(r)
		r.With(middleware.CacheControl(tourCacheMaxAge)).Get("/", tourHandler.ListTours)
		r.With(middleware.CacheControl(tourCacheMaxAge)).Get("/{tourId}", tourHandler.GetTour)
		r.With(throttle, middleware.NoStore).Post("/{tourId}/sessions", sessionHandler.OpenSession)
	})

	r.Route("/api/v1/sessions/{sessionId}", func(r chi.Router) {
		r.Get("/ws", sessionHandler.StreamSession)

		r.Group(func(r chi.Router) {
			api(r)
			r.Use(middleware.NoStore)
			r.Get("/", sessionHandler.GetSession)
			r.Delete("/", sessionHandler.CloseSession)
			r.Put("/tour", sessionHandler.SwitchTour)
			r.Put("/rating", sessionHandler.SelectRating)
			r.Put("/text", sessionHandler.SetText)
			r.With(throttle).Post("/reviews", sessionHandler.SubmitReview)
		})
	})

	r.Route("/api/v1/review", func(r chi.Router) {
		api(r)
		if cfg.TokenValidator != nil {
			r.Use(middleware.Auth(cfg.TokenValidator))
		}
		r.Post("/{tourId}", reviewHandler.PersistReview)
	})

	return r
}
