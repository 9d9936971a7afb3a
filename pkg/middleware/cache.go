package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// CacheControl marks successful GET and HEAD responses as publicly cacheable
// for maxAge. Error responses are sent with no-store so a transient 404 or
// 500 is not cached by intermediaries.
func CacheControl(maxAge time.Duration) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(int(maxAge/time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(&cacheWriter{ResponseWriter: w, value: value}, r)
		})
	}
}

// NoStore forbids caching of every response. Session endpoints return
// per-visitor state and use it.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// cacheWriter picks the Cache-Control value once the status is known.
type cacheWriter struct {
	http.ResponseWriter
	value   string
	decided bool
}

func (w *cacheWriter) decide(status int) {
	if w.decided {
		return
	}
	w.decided = true
	if w.Header().Get("Cache-Control") != "" {
		return
	}
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		w.Header().Set("Cache-Control", w.value)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
}

func (w *cacheWriter) WriteHeader(status int) {
	w.decide(status)
	w.ResponseWriter.WriteHeader(status)
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.decide(http.StatusOK)
	return w.ResponseWriter.Write(b)
}

func (w *cacheWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
