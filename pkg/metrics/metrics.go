package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry - коллекторы приложения, отдаются на /metrics.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sfa_workflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sfa_workflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	chainWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sfa_workflow",
			Subsystem: "approval_chain",
			Name:      "writes_total",
			Help:      "Approval chain writes by operation and outcome.",
		},
		[]string{"operation", "success"},
	)

	chainCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sfa_workflow",
			Subsystem: "approval_chain",
			Name:      "cache_lookups_total",
			Help:      "Resolved chain cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(httpRequests, httpDuration, chainWrites, chainCacheLookups)
}

// Middleware считает запросы и их длительность по шаблону маршрута.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			httpRequests.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler - обработчик /metrics.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// RecordChainWrite фиксирует запись цепочки (save/delete/status).
func RecordChainWrite(operation string, err error) {
	chainWrites.WithLabelValues(operation, strconv.FormatBool(err == nil)).Inc()
}

// RecordCacheLookup фиксирует попадание или промах кэша цепочек.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	chainCacheLookups.WithLabelValues(result).Inc()
}
