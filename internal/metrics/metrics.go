package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metricsOnce ensures metrics are registered only once
	metricsOnce sync.Once

	// commandsTotal tracks dispatched messages by command and outcome
	commandsTotal *prometheus.CounterVec

	// commandDuration tracks how long handlers take, upstream calls included
	commandDuration *prometheus.HistogramVec

	// accessDeniedTotal tracks messages rejected by the allow-list
	accessDeniedTotal prometheus.Counter

	// upstreamRequestsTotal tracks vendor API calls by vendor and status class
	upstreamRequestsTotal *prometheus.CounterVec

	// upstreamErrorsTotal tracks vendor API errors by type
	upstreamErrorsTotal *prometheus.CounterVec

	// notificationsTotal tracks outbound email notices
	notificationsTotal *prometheus.CounterVec

	// inflightMessages tracks messages currently being processed
	inflightMessages prometheus.Gauge
)

// InitMetrics registers all Prometheus metrics.
// This should be called once at application startup
func InitMetrics() {
	metricsOnce.Do(func() {
		commandsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "responder_commands_total",
				Help: "Total number of dispatched chat messages by command and outcome",
			},
			[]string{"command", "outcome"},
		)

		commandDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "responder_command_duration_seconds",
				Help:    "Duration of command handlers in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"command"},
		)

		accessDeniedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "responder_access_denied_total",
				Help: "Total number of messages rejected by the access policy",
			},
		)

		upstreamRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "responder_upstream_requests_total",
				Help: "Total number of vendor API requests by vendor and status class",
			},
			[]string{"vendor", "status"},
		)

		upstreamErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "responder_upstream_errors_total",
				Help: "Total number of vendor API errors by vendor and error type",
			},
			[]string{"vendor", "error_type"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "responder_notifications_total",
				Help: "Total number of email notifications by status",
			},
			[]string{"status"},
		)

		inflightMessages = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "responder_inflight_messages",
				Help: "Number of inbound chat messages currently being processed",
			},
		)
	})
}

// RecordCommand records a dispatch outcome
// outcome: "card", "help", "error", "denied"
func RecordCommand(command, outcome string) {
	if commandsTotal != nil {
		if command == "" {
			command = "none"
		}
		commandsTotal.WithLabelValues(command, outcome).Inc()
	}
}

func RecordCommandDuration(command string, duration time.Duration) {
	if commandDuration != nil {
		commandDuration.WithLabelValues(command).Observe(duration.Seconds())
	}
}

func RecordAccessDenied() {
	if accessDeniedTotal != nil {
		accessDeniedTotal.Inc()
	}
}

// RecordUpstreamRequest records a completed vendor request
// status: "2xx", "4xx", "5xx"
func RecordUpstreamRequest(vendor string, statusCode int) {
	if upstreamRequestsTotal != nil {
		upstreamRequestsTotal.WithLabelValues(vendor, statusClass(statusCode)).Inc()
	}
}

// RecordUpstreamError records a vendor error by type
// errorType: "timeout", "auth", "rate_limit", "server_error", "connection", "circuit_open", "http_error"
func RecordUpstreamError(vendor, errorType string) {
	if upstreamErrorsTotal != nil {
		upstreamErrorsTotal.WithLabelValues(vendor, errorType).Inc()
	}
}

// RecordNotification records an email notice
// status: "sent", "failed"
func RecordNotification(status string) {
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(status).Inc()
	}
}

func MessageStarted() {
	if inflightMessages != nil {
		inflightMessages.Inc()
	}
}

func MessageFinished() {
	if inflightMessages != nil {
		inflightMessages.Dec()
	}
}

// CommandTimer is a helper for timing command handlers
type CommandTimer struct {
	command string
	start   time.Time
}

// StartTimer creates a new timer for measuring handler duration
func StartTimer(command string) *CommandTimer {
	return &CommandTimer{command: command, start: time.Now()}
}

// ObserveDuration records the elapsed time since the timer started
func (t *CommandTimer) ObserveDuration() {
	if t != nil {
		RecordCommandDuration(t.command, time.Since(t.start))
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "none"
	}
}
