package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var requestCount = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Number of HTTP requests processed, by status code, method and path.",
	},
	[]string{"code", "method", "path"},
)

var requestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests, by status code, method and path.",
	},
	[]string{"code", "method", "path"},
)

func registerPrometheusMetrics() error {
	for _, collector := range []prometheus.Collector{requestCount, requestDuration} {
		if err := prometheus.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func unregisterPrometheusMetrics() {
	prometheus.Unregister(requestCount)
	prometheus.Unregister(requestDuration)
}

// MetricsMiddleware collects prometheus metrics for all requests. The
// route template is used as the path label so that IDs do not blow up
// the label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		code := strconv.Itoa(c.Writer.Status())
		requestCount.WithLabelValues(code, c.Request.Method, path).Inc()
		requestDuration.WithLabelValues(code, c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
