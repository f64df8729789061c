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
			Name: "dealmatch_http_requests_total",
			Help: "Total number of HTTP requests processed by the deal-match service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dealmatch_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	swipesRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealmatch_swipes_recorded_total",
			Help: "Total number of swipe decisions recorded.",
		},
		[]string{"direction"},
	)
	duplicateSwipesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealmatch_duplicate_swipes_total",
			Help: "Total number of swipe attempts rejected as already decided.",
		},
	)
	matchesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealmatch_matches_created_total",
			Help: "Total number of match records created.",
		},
	)
	notificationsConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealmatch_match_notifications_consumed_total",
			Help: "Total number of match notifications surfaced to users.",
		},
	)
	messagesAppendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealmatch_messages_appended_total",
			Help: "Total number of chat messages appended to transcripts.",
		},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dealmatch_ws_active_connections",
			Help: "Number of active chat websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealmatch_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"event"},
	)
	wsMessagesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealmatch_ws_messages_dropped_total",
			Help: "Total number of websocket deliveries suppressed before write.",
		},
		[]string{"reason"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealmatch_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		swipesRecordedTotal,
		duplicateSwipesTotal,
		matchesCreatedTotal,
		notificationsConsumedTotal,
		messagesAppendedTotal,
		wsActiveConnections,
		wsEventsTotal,
		wsMessagesDroppedTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
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

func IncSwipeRecorded(direction string) {
	swipesRecordedTotal.WithLabelValues(direction).Inc()
}

func IncDuplicateSwipe() {
	duplicateSwipesTotal.Inc()
}

func IncMatchCreated() {
	matchesCreatedTotal.Inc()
}

func AddNotificationsConsumed(n int) {
	notificationsConsumedTotal.Add(float64(n))
}

func IncMessageAppended() {
	messagesAppendedTotal.Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncWSDropped(reason string) {
	wsMessagesDroppedTotal.WithLabelValues(reason).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
