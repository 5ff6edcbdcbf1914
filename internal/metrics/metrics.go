package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)

	SignalsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_ingested_total",
			Help: "Signals accepted by the store, by source",
		},
		[]string{"source"},
	)
	SignalsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signals_rejected_total",
			Help: "Webhook payloads rejected by validation",
		},
	)

	GateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timing_gate_decisions_total",
			Help: "Smart-timing gate outcomes (send, defer, drop)",
		},
		[]string{"outcome"},
	)

	RulesTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_rules_triggered_total",
			Help: "Alert rules triggered, by evaluation path",
		},
		[]string{"path"},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Delivery attempts by channel and result",
		},
		[]string{"channel", "result"},
	)
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Queue rows by status, refreshed on each poll",
		},
		[]string{"status"},
	)

	RealtimeDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Broadcast events dropped on slow subscribers",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SignalsIngested,
		SignalsRejected,
		GateDecisions,
		RulesTriggered,
		DeliveriesTotal,
		QueueDepth,
		RealtimeDropped,
	)
}

// Handler exposes the default registry for the /metrics route.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
