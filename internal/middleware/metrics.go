package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command and key family.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fambam_redis_errors_total",
		Help: "Total number of failed Redis commands",
	}, []string{"command", "family"})

	// RateLimited counts requests turned away by a named limit.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fambam_rate_limited_total",
		Help: "Requests rejected by a rate limit",
	}, []string{"limit"})

	// ActiveWebSockets is the number of open realtime sync sockets.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fambam_active_websockets",
		Help: "Number of open WebSocket connections",
	})
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics builds the HTTP metrics collector for serviceName. The
// collectors live in the default registry, so only the first call creates
// them; later calls share it.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	if prom == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return prom.Middleware
}
