package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/httputil"
)

type identityKey struct{}

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TokenValidator validates a bearer token and returns the identity it carries.
// This allows the service to inject its own validation logic.
type TokenValidator func(token string) (*Identity, error)

// Auth rejects requests without a valid bearer token and injects the
// identity into the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validate, true)
}

// OptionalAuth injects the identity when a bearer token is present. Requests
// without an Authorization header pass through anonymously; a malformed or
// invalid token is still rejected.
func OptionalAuth(validate TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validate, false)
}

func authenticate(validate TokenValidator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					writeAuthError(w, r, "", "missing authorization header")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				writeAuthError(w, r, "invalid_request", "invalid authorization header format")
				return
			}

			identity, err := validate(token)
			if err != nil || identity == nil {
				writeAuthError(w, r, "invalid_token", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying the given identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the authenticated identity, or nil for
// anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// UsernameFromContext returns the authenticated username or "".
func UsernameFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Username
	}
	return ""
}

// bearerToken extracts the credentials of a "Bearer <token>" header. The
// scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeAuthError answers 401 with a Bearer challenge. errCode is the
// RFC 6750 error attribute and is omitted when the header was absent.
func writeAuthError(w http.ResponseWriter, r *http.Request, errCode, message string) {
	challenge := `Bearer realm="tourgo"`
	if errCode != "" {
		challenge += `, error="` + errCode + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	httputil.WriteError(w, r, apperrors.Unauthorized(message), nil)
}
