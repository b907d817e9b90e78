package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	metricsMu  sync.Mutex
	metricsFor = map[string]*fiberprometheus.FiberPrometheus{}
)

// InitMetrics returns the HTTP metrics collector for serviceName. The
// collectors live in the default registry, so every server built in the same
// process shares one instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	if prom, ok := metricsFor[serviceName]; ok {
		return prom
	}
	prom := fiberprometheus.New(serviceName)
	metricsFor[serviceName] = prom
	return prom
}

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
