package observability

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts every span of the service. InitTracing replaces it.
var Tracer trace.Tracer = otel.Tracer("friendfeed-web")

// Exporters understood by InitTracing.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// TracingConfig selects where spans go and how many are kept.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	Exporter       string
	OTLPEndpoint   string
	SamplerRatio   float64
}

// InitTracing installs W3C propagation and, when enabled, a batching tracer
// provider. The returned func flushes and stops the provider.
func InitTracing(cfg TracingConfig) (func(context.Context) error, error) {
	// Propagation stays on with tracing off, so backend calls still carry the browser's trace headers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		Tracer = otel.Tracer(cfg.ServiceName)
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter %q: %w", cfg.Exporter, err)
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	Tracer = tp.Tracer(cfg.ServiceName)
	return tp.Shutdown, nil
}

func newExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.Exporter == ExporterOTLP {
		return otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	}
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

// samplerFor keeps ratio of new traces and follows the caller's decision otherwise.
func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// InjectHeaders writes the trace context of ctx into h.
func InjectHeaders(ctx context.Context, h http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}

// ExtractHeaders returns ctx carrying the trace context found in h.
func ExtractHeaders(ctx context.Context, h http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(h))
}

// Span is a nil-safe handle on a started span.
type Span struct {
	span trace.Span
}

// NewSpan starts name as a child of ctx.
func NewSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (*Span, context.Context) {
	ctx, span := Tracer.Start(ctx, name, opts...)
	return &Span{span: span}, ctx
}

// AddAttributes annotates the span.
func (s *Span) AddAttributes(attrs ...attribute.KeyValue) {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetAttributes(attrs...)
}

// SetError marks the span failed with err. A nil err is ignored.
func (s *Span) SetError(err error) {
	if s == nil || s.span == nil || err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *Span) End() {
	if s == nil || s.span == nil {
		return
	}
	s.span.End()
}

// TraceID is the hex trace id, or "" without a span.
func (s *Span) TraceID() string {
	if s == nil || s.span == nil {
		return ""
	}
	return s.span.SpanContext().TraceID().String()
}

// StartRedisSpan starts a client span for one Redis command.
func StartRedisSpan(ctx context.Context, command string) (*Span, context.Context) {
	return NewSpan(ctx, "redis "+command,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", command),
		),
	)
}
