package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poimap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "poimap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "poimap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Ingestion metrics
	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "poimap",
		Subsystem: "ingest",
		Name:      "duration_seconds",
		Help:      "Duration of one dataset load, fetch and normalize",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"category"})

	IngestFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poimap",
		Subsystem: "ingest",
		Name:      "fallbacks_total",
		Help:      "Loads that ended in READY_WITH_FALLBACK",
	}, []string{"category"})

	DroppedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poimap",
		Subsystem: "ingest",
		Name:      "dropped_records_total",
		Help:      "Raw records discarded during normalization",
	}, []string{"category", "reason"})

	IngestedPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poimap",
		Subsystem: "ingest",
		Name:      "points_total",
		Help:      "Points written to the catalog",
	}, []string{"category", "state"})

	LayerPoints = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "poimap",
		Subsystem: "catalog",
		Name:      "points",
		Help:      "Current number of points per category",
	}, []string{"category"})

	// Display metrics
	ActiveViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poimap",
		Subsystem: "display",
		Name:      "active_viewers",
		Help:      "Viewer sessions held by this process",
	})

	MarkersRendered = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "poimap",
		Subsystem: "display",
		Name:      "markers_rendered",
		Help:      "Size of each rendered marker set",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poimap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poimap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poimap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Attraction database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poimap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poimap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poimap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics copies pool counters into the db gauges. It takes an
// interface so this package does not import pgxpool.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
	}
}
