package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the HTTP request metrics and their registry.
type Metrics struct {
	prom     *fiberprometheus.FiberPrometheus
	registry *prometheus.Registry
}

// InitMetrics creates HTTP request metrics for serviceName on a private registry.
func InitMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		prom:     fiberprometheus.NewWithRegistry(reg, serviceName, "http", "", nil),
		registry: reg,
	}
}

// MetricsMiddleware records every request.
func MetricsMiddleware(m *Metrics) fiber.Handler {
	return m.prom.Middleware
}

// Handler serves the HTTP metrics together with the process-wide ones.
func (m *Metrics) Handler() fiber.Handler {
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, m.registry}
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
}
