package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "nats_updater"

	UpdaterSubsystem  = "updater"
	ReceiverSubsystem = "receiver"
	WebhookSubsystem  = "webhook"
)

// Статусы обработки обновления.
const (
	StatusHandled   = "handled"
	StatusFailed    = "failed"
	StatusFiltered  = "filtered"
	StatusDuplicate = "duplicate"
	StatusMalformed = "malformed"
	StatusRequeued  = "requeued"
)

// Общие метрики для всех сервисов.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)
)

// Метрики updater.
var (
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: UpdaterSubsystem,
			Name:      "updates_total",
			Help:      "Total number of updates taken from JetStream by type and status",
		},
		[]string{"update_type", "status"},
	)

	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: UpdaterSubsystem,
			Name:      "handler_duration_seconds",
			Help:      "Update handler duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"update_type"},
	)

	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: UpdaterSubsystem,
			Name:      "fetch_errors_total",
			Help:      "Total number of failed JetStream fetches",
		},
		[]string{"reason"},
	)

	UpdaterRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: UpdaterSubsystem,
			Name:      "running",
			Help:      "1 while the updater fetch loop is running",
		},
	)
)

// Метрики receiver.
var (
	PublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ReceiverSubsystem,
			Name:      "published_total",
			Help:      "Total number of webhook updates published to JetStream",
		},
		[]string{"status"},
	)
)

// Метрики webhook.
var (
	WebhookPendingUpdates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: WebhookSubsystem,
			Name:      "pending_update_count",
			Help:      "Number of updates Telegram has not delivered to the webhook yet",
		},
	)

	WebhookChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: WebhookSubsystem,
			Name:      "checks_total",
			Help:      "Total number of webhook info checks",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequest(service, method, endpoint string, statusCode int, duration time.Duration) {
	status := "success"
	if statusCode >= 400 {
		status = "error"
	}

	HTTPRequestsTotal.WithLabelValues(service, method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(service, method, endpoint).Observe(duration.Seconds())
}

func RecordUpdate(updateType, status string) {
	UpdatesTotal.WithLabelValues(updateType, status).Inc()
}

func RecordHandlerDuration(updateType string, duration time.Duration) {
	HandlerDuration.WithLabelValues(updateType).Observe(duration.Seconds())
}

func RecordFetchError(reason string) {
	FetchErrorsTotal.WithLabelValues(reason).Inc()
}

func SetUpdaterRunning(running bool) {
	if running {
		UpdaterRunning.Set(1)
		return
	}

	UpdaterRunning.Set(0)
}

func RecordPublish(status string) {
	PublishedTotal.WithLabelValues(status).Inc()
}

func RecordWebhookCheck(result string, pending int) {
	WebhookChecksTotal.WithLabelValues(result).Inc()

	if result == "ok" || result == "delivery_error" || result == "reregistered" {
		WebhookPendingUpdates.Set(float64(pending))
	}
}
