package middleware

import (
	"fmt"
	"net/http"

	"friendfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a server span per request and exposes its trace id.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := observability.ExtractHeaders(c.UserContext(), http.Header(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, fmt.Sprintf("%s %s", c.Method(), c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
				attribute.String("http.ip", c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals(LocalTraceID, traceID)
		if rid, ok := c.Locals(LocalRequestID).(string); ok {
			span.SetAttributes(attribute.String("request.id", rid))
		}
		c.Set("X-Trace-ID", traceID)
		c.SetUserContext(observability.WithTraceID(ctx, traceID))

		err := c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
		if err != nil {
			span.RecordError(err)
		}
		if sid, ok := c.Locals(LocalSessionID).(string); ok {
			span.SetAttributes(attribute.String("session.id", sid))
		}
		return err
	}
}
