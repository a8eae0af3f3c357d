// Package config provides application configuration management.
// It loads settings from a .env file and environment variables and applies
// defaults for the Messenger Platform, the order lookup service, and the
// observability sinks.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the Messenger Platform and the order lookup service.
const (
	DefaultPort                   = "1337"
	DefaultGraphAPIBaseURL        = "https://graph.facebook.com"
	DefaultGraphAPIVersion        = "v15.0"
	DefaultGraphProfileAPIVersion = "v2.6"
	DefaultTrackingAPIURL         = "https://api.globex.vn/tmm/api/v1/nonAuthen/tracking"
	DefaultTrackingPageURL        = "https://globex.vn/tra-cuu"
	DefaultMessageLocale          = "vi"
	DefaultMaxEntriesPerWebhook   = 100
)

// Config holds all application configuration
type Config struct {
	// Messenger Platform credentials
	VerifyToken     string // Token echoed back during webhook subscription verification
	PageAccessToken string // Page token used for the Send and Messenger Profile APIs
	AppSecret       string // Enables X-Hub-Signature-256 checks when set

	// Server Configuration
	Port                 string
	LogLevel             string
	ShutdownTimeout      time.Duration
	MaxEntriesPerWebhook int

	// Graph API
	GraphAPIBaseURL        string
	GraphAPIVersion        string // Send API version
	GraphProfileAPIVersion string // Messenger Profile API version

	// Order Tracking
	TrackingAPIURL  string // Lookup endpoint, queried with keySearch=<code>
	TrackingPageURL string // Public page linked in replies
	MessageLocale   string

	HTTPClientTimeout time.Duration

	// Sentry (DSN, or Better Stack token + host)
	SentryDSN         string
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack log shipping
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		VerifyToken:     getEnv(EnvVerifyToken, ""),
		PageAccessToken: getEnv(EnvPageAccessToken, ""),
		AppSecret:       getEnv(EnvAppSecret, ""),

		Port:                 getEnv(EnvPort, DefaultPort),
		LogLevel:             getEnv(EnvLogLevel, "info"),
		ShutdownTimeout:      getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		MaxEntriesPerWebhook: getIntEnv(EnvMaxEntriesPerWebhook, DefaultMaxEntriesPerWebhook),

		GraphAPIBaseURL:        strings.TrimRight(getEnv(EnvGraphAPIBaseURL, DefaultGraphAPIBaseURL), "/"),
		GraphAPIVersion:        getEnv(EnvGraphAPIVersion, DefaultGraphAPIVersion),
		GraphProfileAPIVersion: getEnv(EnvGraphProfileAPIVersion, DefaultGraphProfileAPIVersion),

		TrackingAPIURL:  getEnv(EnvTrackingAPIURL, DefaultTrackingAPIURL),
		TrackingPageURL: getEnv(EnvTrackingPageURL, DefaultTrackingPageURL),
		MessageLocale:   getEnv(EnvMessageLocale, DefaultMessageLocale),

		HTTPClientTimeout: getDurationEnv(EnvHTTPClientTimeout, HTTPClientRequest),

		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.VerifyToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvVerifyToken))
	}
	if c.PageAccessToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPageAccessToken))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	if c.HTTPClientTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvHTTPClientTimeout, c.HTTPClientTimeout))
	}
	if c.MaxEntriesPerWebhook <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxEntriesPerWebhook, c.MaxEntriesPerWebhook))
	}
	if c.GraphAPIVersion == "" || c.GraphProfileAPIVersion == "" {
		errs = append(errs, errors.New("graph API versions must not be empty"))
	}
	for key, raw := range map[string]string{
		EnvGraphAPIBaseURL: c.GraphAPIBaseURL,
		EnvTrackingAPIURL:  c.TrackingAPIURL,
		EnvTrackingPageURL: c.TrackingPageURL,
	} {
		if err := validateURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}
	if c.SentryToken != "" && c.SentryHost == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvSentryHost, EnvSentryToken))
	}

	return errors.Join(errs...)
}

// SentryEnabled reports whether error reporting is configured.
func (c *Config) SentryEnabled() bool {
	return c.SentryDSN != "" || c.SentryToken != ""
}

// MetricsAuthEnabled reports whether /metrics requires Basic Auth.
func (c *Config) MetricsAuthEnabled() bool {
	return c.MetricsPassword != ""
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
