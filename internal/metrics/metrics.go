// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	domerrors "github.com/globexvn/messenger-tracking-bot/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookEventsTotal     *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookEntriesDropped  prometheus.Counter
	EntriesInFlight        prometheus.Gauge

	// Verification metrics
	VerificationsTotal *prometheus.CounterVec

	// Outbound API metrics
	OutboundRequestsTotal   *prometheus.CounterVec
	OutboundDurationSeconds *prometheus.HistogramVec

	// Order lookup metrics
	LookupResultsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messenger_webhook_events_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // event_type: message, postback, unknown; status: success, error, skipped
		),

		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "messenger_webhook_event_duration_seconds",
				Help:    "Per-entry processing duration in seconds by event type",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"event_type"},
		),

		WebhookEntriesDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "messenger_webhook_entries_dropped_total",
				Help: "Entries discarded because a delivery exceeded the per-webhook entry cap",
			},
		),

		EntriesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "messenger_webhook_entries_in_flight",
				Help: "Entries currently being processed in the background",
			},
		),

		VerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messenger_webhook_verifications_total",
				Help: "Webhook subscription handshakes by result",
			},
			[]string{"result"}, // result: verified, forbidden, bad_request
		),

		OutboundRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messenger_outbound_requests_total",
				Help: "Total number of outbound API calls by service and status",
			},
			[]string{"service", "status"}, // service: send, profile, tracking; status: success, error, timeout
		),

		OutboundDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "messenger_outbound_duration_seconds",
				Help:    "Outbound API call duration in seconds by service",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15}, // Matches the 15s client timeout
			},
			[]string{"service"},
		),

		LookupResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messenger_tracking_lookups_total",
				Help: "Order lookups by result",
			},
			[]string{"result"}, // result: found, not_found, error, skipped
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messenger_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: invalid_signature, not_page, invalid_payload
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messenger_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"module"},
		),
	}
}

// RecordWebhookEvent records one processed entry.
func (m *Metrics) RecordWebhookEvent(eventType, status string, duration float64) {
	m.WebhookEventsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordEntriesDropped adds n entries cut by the per-webhook cap.
func (m *Metrics) RecordEntriesDropped(n int) {
	m.WebhookEntriesDropped.Add(float64(n))
}

// EntryStarted and EntryFinished track background entry goroutines.
func (m *Metrics) EntryStarted() {
	m.EntriesInFlight.Inc()
}

func (m *Metrics) EntryFinished() {
	m.EntriesInFlight.Dec()
}

func (m *Metrics) RecordVerification(result string) {
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

// RecordOutbound records a call to the Graph API or the lookup service.
func (m *Metrics) RecordOutbound(service, status string, duration float64) {
	m.OutboundRequestsTotal.WithLabelValues(service, status).Inc()
	m.OutboundDurationSeconds.WithLabelValues(service).Observe(duration)
}

func (m *Metrics) RecordLookup(result string) {
	m.LookupResultsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

func (m *Metrics) RecordSingleflightDedup(module string) {
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// OutcomeLabel maps an outbound call result to the status label.
func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case domerrors.IsTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}
