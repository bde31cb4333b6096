package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors of the service
var Metrics = struct {
	CommandsTotal    *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	UpstreamDuration *prometheus.HistogramVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}{}

// InitMetrics registers all Prometheus metrics on reg, or on the default
// registry when reg is nil. Call once at startup.
func InitMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	Metrics.CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bangumi_commands_total",
			Help: "Chat commands dispatched, by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	Metrics.CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bangumi_command_duration_seconds",
			Help:    "Time spent running a chat command, including upstream calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	Metrics.UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bangumi_upstream_request_duration_seconds",
			Help:    "Outbound request duration, by endpoint, method and status (0 = transport error).",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bangumi_api_request_duration_seconds",
			Help:    "Inbound HTTP request duration, by route and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bangumi_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	reg.MustRegister(
		Metrics.CommandsTotal,
		Metrics.CommandDuration,
		Metrics.UpstreamDuration,
		Metrics.RequestDuration,
		Metrics.RequestsInFlight,
	)
}

// ObserveUpstream matches httpclient.Observer
func ObserveUpstream(method, endpoint string, status int, elapsed time.Duration) {
	if Metrics.UpstreamDuration == nil {
		return
	}
	Metrics.UpstreamDuration.WithLabelValues(endpoint, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func observeCommand(command string, failed bool, elapsed time.Duration) {
	if Metrics.CommandsTotal == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	Metrics.CommandsTotal.WithLabelValues(command, outcome).Inc()
	Metrics.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// MetricsMiddleware records request duration and in-flight count for Prometheus
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Metrics.RequestDuration == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		// 使用路由模板作为标签，避免基数爆炸
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		Metrics.RequestDuration.WithLabelValues(endpoint, c.Request.Method, status).Observe(time.Since(start).Seconds())
		Metrics.RequestsInFlight.Dec()
	}
}

// MetricsHandler serves the Prometheus /metrics endpoint
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
