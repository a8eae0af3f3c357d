// Package sentry wraps the Sentry Go SDK. Events can go to any Sentry DSN or to
// Better Stack's Sentry-compatible error collector (token + host).
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds Sentry configuration.
type Config struct {
	// DSN is a full Sentry DSN. Takes precedence over Token/Host.
	DSN string

	// Token is the Better Stack Errors application token.
	Token string

	// Host is the Better Stack Errors ingesting host (e.g., "errors.betterstack.com").
	Host string

	Environment string
	Release     string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	Debug bool
}

// DSNString resolves the DSN to use, or "" when error reporting is disabled.
func (c Config) DSNString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Token == "" {
		return "", nil
	}
	if c.Host == "" {
		return "", errors.New("sentry host is required when token is provided")
	}
	// The project ID (/1) is required by the SDK but ignored by Better Stack.
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host), nil
}

// Initialize sets up the Sentry SDK. With neither DSN nor token configured,
// Sentry stays disabled and nil is returned.
func Initialize(cfg Config) error {
	dsn, err := cfg.DSNString()
	if err != nil || dsn == "" {
		return err
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException reports err with the hub bound to ctx (set by the gin
// middleware), falling back to the global hub for detached work.
func CaptureException(ctx context.Context, err error, tags map[string]string) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}
