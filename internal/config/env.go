// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvVerifyToken     = "VERIFY_TOKEN"
	EnvPageAccessToken = "PAGE_ACCESS_TOKEN"
	EnvAppSecret       = "APP_SECRET"

	// Server
	EnvPort                 = "PORT"
	EnvLogLevel             = "LOG_LEVEL"
	EnvShutdownTimeout      = "SHUTDOWN_TIMEOUT"
	EnvMaxEntriesPerWebhook = "MAX_ENTRIES_PER_WEBHOOK"

	// Messenger Platform
	EnvGraphAPIBaseURL        = "GRAPH_API_BASE_URL"
	EnvGraphAPIVersion        = "GRAPH_API_VERSION"
	EnvGraphProfileAPIVersion = "GRAPH_PROFILE_API_VERSION"

	// Order Tracking
	EnvTrackingAPIURL  = "TRACKING_API_URL"
	EnvTrackingPageURL = "TRACKING_PAGE_URL"
	EnvMessageLocale   = "MESSAGE_LOCALE"

	EnvHTTPClientTimeout = "HTTP_CLIENT_TIMEOUT"

	// Sentry Feature
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryToken       = "SENTRY_TOKEN"
	EnvSentryHost        = "SENTRY_HOST"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"
)
