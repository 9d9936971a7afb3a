package http

import (
	"log/slog"
	"mime"
	"net/http"

	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/httputil"
)

// requireJSON rejects bodies declared as anything other than
// application/json with 415. A missing Content-Type is accepted since the
// submit endpoint allows an empty body.
func requireJSON(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			ct := r.Header.Get("Content-Type")
			if ct == "" {
				next.ServeHTTP(w, r)
				return
			}
			if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
				httputil.WriteError(w, r, apperrors.New(http.StatusUnsupportedMediaType,
					"UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json", apperrors.ErrInvalidInput), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
