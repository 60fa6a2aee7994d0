// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	GlobalLogger = NewLogger(os.Getenv("APP_ENV"), os.Stdout)
}

// TraceContextKey is the type for request-scoped context keys.
type TraceContextKey string

const (
	// RequestIDKey is the context key for request ID.
	RequestIDKey TraceContextKey = "request_id"
	// SessionIDKey is the context key for the browser session ID.
	SessionIDKey TraceContextKey = "session_id"
	// TraceIDKey is the context key for trace ID.
	TraceIDKey TraceContextKey = "trace_id"
)

// ctxHandler is a slog.Handler that adds context values to the log record.
type ctxHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing it to the underlying handler.
func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range []TraceContextKey{RequestIDKey, SessionIDKey, TraceIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			r.AddAttrs(slog.String(string(key), v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger builds a context-aware logger: JSON in production, text otherwise.
func NewLogger(env string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(&ctxHandler{handler})}
}

// SetupLogging replaces the global logger for the given environment and makes it the slog default.
func SetupLogging(env string) {
	GlobalLogger = NewLogger(env, os.Stdout)
	slog.SetDefault(GlobalLogger.Logger)
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithSessionID returns a new context with the given session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// WithTraceID returns a new context with the given trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// ExtractRequestID returns the request ID from the context if set.
func ExtractRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// ExtractSessionID returns the session ID from the context if set.
func ExtractSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableBackendLogging bool
	EnableWSLogging      bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableBackendLogging: true,
	EnableWSLogging:      true,
}

// BackendLogger provides structured logging for calls to the backend API.
type BackendLogger struct {
	logger *Logger
}

// NewBackendLogger creates a new BackendLogger.
func NewBackendLogger() *BackendLogger {
	return &BackendLogger{logger: GlobalLogger}
}

// LogCall logs a completed backend call.
func (l *BackendLogger) LogCall(ctx context.Context, method, path string, status int, elapsed time.Duration) {
	if !Config.EnableBackendLogging {
		return
	}
	l.logger.InfoContext(ctx, "backend call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("latency", elapsed),
	)
}

// LogError logs a failed backend call.
func (l *BackendLogger) LogError(ctx context.Context, method, path string, err error) {
	if !Config.EnableBackendLogging {
		return
	}
	l.logger.ErrorContext(ctx, "backend call failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
	logger  *Logger
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{
		hubName: hubName,
		logger:  GlobalLogger,
	}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, sessionID string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("session", sessionID),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, sessionID, reason string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("session", sessionID),
		slog.String("reason", reason),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, sessionID string, err error, eventType string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.String("session", sessionID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
