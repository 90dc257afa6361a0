package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 业务指标：变体生成、失效与判分
	VariantGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_generated_total",
			Help: "Total number of student variants generated",
		},
	)

	VariantSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_skipped_total",
			Help: "Students skipped during variant generation",
		},
		[]string{"reason"},
	)

	VariantInvalidated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_invalidated_total",
			Help: "Total number of student variants invalidated",
		},
	)

	AnswerSheetsScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answer_sheets_scored_total",
			Help: "Total number of scored answer sheets",
		},
		[]string{"stale"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(VariantGenerated)
	prometheus.MustRegister(VariantSkipped)
	prometheus.MustRegister(VariantInvalidated)
	prometheus.MustRegister(AnswerSheetsScored)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
