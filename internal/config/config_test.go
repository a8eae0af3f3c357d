package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvVerifyToken, "verify-me")
	t.Setenv(EnvPageAccessToken, "page-token")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "verify-me", cfg.VerifyToken)
	assert.Equal(t, "page-token", cfg.PageAccessToken)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, GracefulShutdown, cfg.ShutdownTimeout)
	assert.Equal(t, HTTPClientRequest, cfg.HTTPClientTimeout)
	assert.Equal(t, "v15.0", cfg.GraphAPIVersion)
	assert.Equal(t, "v2.6", cfg.GraphProfileAPIVersion)
	assert.Equal(t, DefaultGraphAPIBaseURL, cfg.GraphAPIBaseURL)
	assert.Equal(t, "vi", cfg.MessageLocale)
	assert.Equal(t, 100, cfg.MaxEntriesPerWebhook)
	assert.Equal(t, "prometheus", cfg.MetricsUsername)
	assert.False(t, cfg.SentryEnabled())
	assert.False(t, cfg.MetricsAuthEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvAppSecret, "s3cret")
	t.Setenv(EnvShutdownTimeout, "5s")
	t.Setenv(EnvGraphAPIBaseURL, "http://localhost:9000/")
	t.Setenv(EnvMaxEntriesPerWebhook, "7")
	t.Setenv(EnvSentryDSN, "https://key@sentry.example.com/1")
	t.Setenv(EnvSentrySampleRate, "0.25")
	t.Setenv(EnvMetricsPassword, "pw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "s3cret", cfg.AppSecret)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:9000", cfg.GraphAPIBaseURL)
	assert.Equal(t, 7, cfg.MaxEntriesPerWebhook)
	assert.InDelta(t, 0.25, cfg.SentrySampleRate, 1e-9)
	assert.True(t, cfg.SentryEnabled())
	assert.True(t, cfg.MetricsAuthEnabled())
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvShutdownTimeout, "soon")
	t.Setenv(EnvMaxEntriesPerWebhook, "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, GracefulShutdown, cfg.ShutdownTimeout)
	assert.Equal(t, DefaultMaxEntriesPerWebhook, cfg.MaxEntriesPerWebhook)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv(EnvVerifyToken, "")
	t.Setenv(EnvPageAccessToken, "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvVerifyToken)
	assert.Contains(t, err.Error(), EnvPageAccessToken)
}

func validConfig() *Config {
	return &Config{
		VerifyToken:            "v",
		PageAccessToken:        "p",
		Port:                   "1337",
		ShutdownTimeout:        time.Second,
		MaxEntriesPerWebhook:   10,
		GraphAPIBaseURL:        DefaultGraphAPIBaseURL,
		GraphAPIVersion:        DefaultGraphAPIVersion,
		GraphProfileAPIVersion: DefaultGraphProfileAPIVersion,
		TrackingAPIURL:         DefaultTrackingAPIURL,
		TrackingPageURL:        DefaultTrackingPageURL,
		HTTPClientTimeout:      time.Second,
		SentrySampleRate:       1,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty port", mutate: func(c *Config) { c.Port = "" }, errContains: EnvPort},
		{name: "zero shutdown", mutate: func(c *Config) { c.ShutdownTimeout = 0 }, errContains: EnvShutdownTimeout},
		{name: "zero client timeout", mutate: func(c *Config) { c.HTTPClientTimeout = 0 }, errContains: EnvHTTPClientTimeout},
		{name: "zero entries", mutate: func(c *Config) { c.MaxEntriesPerWebhook = 0 }, errContains: EnvMaxEntriesPerWebhook},
		{name: "bad tracking url", mutate: func(c *Config) { c.TrackingAPIURL = "ftp://x" }, errContains: EnvTrackingAPIURL},
		{name: "missing host", mutate: func(c *Config) { c.TrackingPageURL = "https://" }, errContains: EnvTrackingPageURL},
		{name: "empty version", mutate: func(c *Config) { c.GraphAPIVersion = "" }, errContains: "versions"},
		{name: "sample rate", mutate: func(c *Config) { c.SentrySampleRate = 2 }, errContains: EnvSentrySampleRate},
		{name: "token without host", mutate: func(c *Config) { c.SentryToken = "t" }, errContains: EnvSentryHost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
