package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_http_requests_total",
			Help: "Total number of HTTP requests processed by the community service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "community_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	subscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "community_chat_subscriptions_active",
			Help: "Number of standing realtime subscriptions.",
		},
	)
	screensActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "community_chat_screens_active",
			Help: "Number of open websocket chat screens.",
		},
	)
	chatEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_chat_events_total",
			Help: "Total number of chat screen events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "community_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		subscriptionsActive,
		screensActive,
		chatEventsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncSubscriptionsActive() {
	subscriptionsActive.Inc()
}

func DecSubscriptionsActive() {
	subscriptionsActive.Dec()
}

func IncScreensActive() {
	screensActive.Inc()
}

func DecScreensActive() {
	screensActive.Dec()
}

func IncChatEvent(event string) {
	chatEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
