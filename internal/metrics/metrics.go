package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kitchenpos"

// Checkout outcomes recorded on CheckoutsTotal.
const (
	OutcomeSuccess            = "success"
	OutcomeValidation         = "validation"
	OutcomeNotFound           = "not_found"
	OutcomeInsufficientStock  = "insufficient_stock"
	OutcomeConcurrentConflict = "concurrent_modification"
	OutcomePersistence        = "persistence"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	CheckoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkouts by outcome",
		},
		[]string{"outcome"},
	)
	CheckoutAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_attempts",
			Help:      "Storage attempts needed per checkout",
			Buckets:   []float64{1, 2, 3, 5, 8},
		},
	)
	LowStockAdvisories = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_advisories_total",
			Help:      "Low-stock advisories raised by checkouts",
		},
	)
)

// NormalizePath keeps the first two path segments so ids do not explode label cardinality.
func NormalizePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "root"
	}
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, "/")
}

// Middleware records request counts and latency.
func Middleware(c *gin.Context) {
	if c.Request.URL.Path == "/metrics" {
		c.Next()
		return
	}
	start := time.Now()
	c.Next()
	duration := time.Since(start).Seconds()
	path := NormalizePath(c.Request.URL.Path)
	status := strconv.Itoa(c.Writer.Status())
	RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	RequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
