package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/TourGo/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, bound to the
// request's correlation ID, identity and trace. Mount it after
// RequestLogging, Tracing and OptionalAuth.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if name := UsernameFromContext(ctx); name != "" {
				ctx = logger.WithUsername(ctx, name)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
