// Package webhook provides functional options for Handler configuration.
package webhook

import "github.com/globexvn/messenger-tracking-bot/internal/metrics"

// HandlerOption is a functional option for configuring Handler.
type HandlerOption func(*Handler)

// WithAppSecret enables X-Hub-Signature-256 verification of POST bodies.
func WithAppSecret(secret string) HandlerOption {
	return func(h *Handler) {
		h.appSecret = secret
	}
}

// WithMaxEntries caps how many entries of one delivery are processed.
// Non-positive values keep the default.
func WithMaxEntries(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxEntriesPerWebhook = n
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithMaxBodyBytes limits the size of a webhook body.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}
