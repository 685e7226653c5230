package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	VersionsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "test_versions_published_total",
		Help: "Test versions published as current",
	})

	KeysStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enrolment_keys_started_total",
		Help: "Enrolment keys bound to a passage on first resolve",
	})

	AnswersRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enrolment_keys_answered_total",
		Help: "Enrolment keys finalized with recorded answers",
	})

	SMSOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_outcomes_total",
			Help: "SMS send outcomes; delivery_unknown counts failures treated as sent",
		},
		[]string{"template", "outcome"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Notifications that failed without affecting the triggering operation",
		},
		[]string{"channel"},
	)
)

// Middleware records request counts and latencies per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
