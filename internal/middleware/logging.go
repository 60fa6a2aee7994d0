// Package middleware holds the fiber middleware shared by every route.
package middleware

import (
	"log/slog"
	"time"

	"friendfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals written by the middleware chain.
const (
	LocalRequestID = "requestid"
	LocalTraceID   = "traceID"
	LocalSessionID = "sessionID"
)

// ContextMiddleware copies request, trace and session ids from fiber locals into the
// user context so the context-aware logger picks them up in every layer.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals(LocalRequestID).(string); ok && rid != "" {
			ctx = observability.WithRequestID(ctx, rid)
		}
		if tid, ok := c.Locals(LocalTraceID).(string); ok && tid != "" {
			ctx = observability.WithTraceID(ctx, tid)
		}
		if sid, ok := c.Locals(LocalSessionID).(string); ok && sid != "" {
			ctx = observability.WithSessionID(ctx, sid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request after it was handled.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.GlobalLogger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.GlobalLogger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return err
	}
}
