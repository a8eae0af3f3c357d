// Package config provides centralized timeout constants for the application.
//
// The Messenger Platform expects a 200 within a few seconds of each webhook
// delivery and retries deliveries that time out, so the acknowledgement never
// waits for entry processing. Outbound calls (Send API, order lookup) run on
// detached contexts bounded only by the HTTP client timeout.
package config

import "time"

// HTTP server timeouts
const (
	// WebhookHTTPRead is the HTTP server read timeout.
	// Webhook payloads are small JSON documents.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPReadHeader bounds header reads (slowloris protection).
	WebhookHTTPReadHeader = 5 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	// Covers the synchronous POST /set call to the Messenger Profile API.
	WebhookHTTPWrite = 30 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Outbound HTTP
const (
	// HTTPClientRequest is the default timeout for a single call to the
	// Graph API or the order lookup service. There is no retry.
	HTTPClientRequest = 15 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the default timeout for graceful server shutdown.
	// Covers in-flight requests plus entry goroutines still talking to the Graph API.
	GracefulShutdown = 30 * time.Second
)
