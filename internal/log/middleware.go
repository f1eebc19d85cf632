package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or the default logger tagged
// "unknown" when none was stored.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return newLogger(slog.Default(), "unknown")
}

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// RequestIDMiddleware tags the request logger with the id extracted from
// the request. Requests without one keep the logger as is.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := extractRequestID(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			logger := FromContext(r.Context()).With(FieldRequestID, id)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger writes the recurring log events with a fixed field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart logs an incoming request.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)

	sl.logger.DebugContext(ctx, "HTTP request started", fields.Args()...)
}

// LogHTTPEnd logs a finished request: warn for 4xx, error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)

	sl.logger.Log(ctx, level, "HTTP request completed", fields.Args()...)
}

// LogPayableCreated logs a new payable with its classification.
func (sl *StructuredLogger) LogPayableCreated(ctx context.Context, id int64, desc string, amount float64, dueDate, group, subgroup, code string) {
	fields := NewFields().
		WithPayable(id, desc, amount, dueDate).
		WithClassification(group, subgroup, code).
		WithOperation(OpCreate)

	sl.logger.InfoContext(ctx, "Payable created", fields.Args()...)
}

// LogChange logs what happened to a pending change.
func (sl *StructuredLogger) LogChange(ctx context.Context, msg, id, kind string, affected int) {
	fields := NewFields().
		With(FieldChangeID, id).
		With(FieldChangeKind, kind).
		With(FieldCount, affected)

	sl.logger.InfoContext(ctx, msg, fields.Args()...)
}

// LogPersistenceFailure logs a background write that did not reach the
// store. Memory already holds the change.
func (sl *StructuredLogger) LogPersistenceFailure(ctx context.Context, err error) {
	fields := NewFields().
		WithOperation(OpPersist).
		WithError(err)

	sl.logger.ErrorContext(ctx, "Persistence failed", fields.Args()...)
}
