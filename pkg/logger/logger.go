package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type (
	correlationIDKey struct{}
	usernameKey      struct{}
	sessionIDKey     struct{}
	loggerKey        struct{}
)

// New creates a JSON logger on stdout tagged with the service name.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

// NewWithWriter creates a JSON logger on w. Unknown levels fall back to info.
// Records logged with a context carry its correlation, identity, session and
// trace fields.
func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(&contextHandler{inner: h}).With(slog.String("service", serviceName))
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext extracts the correlation ID from the context.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// WithUsername returns a new context with the visitor's username for logging.
func WithUsername(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, usernameKey{}, name)
}

// UsernameFromContext extracts the username stored by WithUsername.
func UsernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey{}).(string)
	return name
}

// WithSessionID returns a new context carrying the viewing session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext extracts the viewing session ID from the context.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// NewContext returns a new context with the given logger stored in it.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the request-scoped logger stored in context, or
// slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext binds the fields of ctx to l so they appear even on records
// logged without a context. Fields of a context passed at log time win.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	if h, ok := l.Handler().(*contextHandler); ok {
		return slog.New(&contextHandler{inner: h.inner, bound: ctx})
	}
	return l.With(contextAttrs(ctx, nil)...)
}

// contextHandler adds request fields from the record's context, falling back
// to a bound context for fields the record's context lacks.
type contextHandler struct {
	inner slog.Handler
	bound context.Context
}

func (h *contextHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.inner.Enabled(ctx, lvl)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := contextAttrs(ctx, h.bound)
	if len(attrs) > 0 {
		r = r.Clone()
		for _, a := range attrs {
			r.AddAttrs(a.(slog.Attr))
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: h.inner.WithAttrs(attrs), bound: h.bound}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name), bound: h.bound}
}

// contextAttrs collects the request fields of ctx, taking missing ones from
// fallback when it is non-nil.
func contextAttrs(ctx, fallback context.Context) []any {
	pick := func(get func(context.Context) string) string {
		if v := get(ctx); v != "" {
			return v
		}
		if fallback != nil {
			return get(fallback)
		}
		return ""
	}

	var attrs []any
	if id := pick(CorrelationIDFromContext); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if name := pick(UsernameFromContext); name != "" {
		attrs = append(attrs, slog.String("username", name))
	}
	if id := pick(SessionIDFromContext); id != "" {
		attrs = append(attrs, slog.String("session_id", id))
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() && fallback != nil {
		sc = trace.SpanContextFromContext(fallback)
	}
	if sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}
