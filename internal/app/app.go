// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/globexvn/messenger-tracking-bot/internal/bot"
	"github.com/globexvn/messenger-tracking-bot/internal/buildinfo"
	"github.com/globexvn/messenger-tracking-bot/internal/config"
	"github.com/globexvn/messenger-tracking-bot/internal/ctxutil"
	"github.com/globexvn/messenger-tracking-bot/internal/logger"
	"github.com/globexvn/messenger-tracking-bot/internal/messenger"
	"github.com/globexvn/messenger-tracking-bot/internal/metrics"
	sentryutil "github.com/globexvn/messenger-tracking-bot/internal/sentry"
	"github.com/globexvn/messenger-tracking-bot/internal/tracking"
	"github.com/globexvn/messenger-tracking-bot/internal/webhook"
)

const serviceName = "messenger-tracking-bot"

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-Id"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	graphClient    *messenger.Client
	trackingClient *tracking.Client
	composer       *bot.Composer
	webhookHandler *webhook.Handler
	router         *gin.Engine
	server         *http.Server
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", serviceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context() calls also get sender/request IDs.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.VersionOrDev()).InfoContext(ctx, "Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentryutil.Initialize(sentryutil.Config{
		DSN:         cfg.SentryDSN,
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.VersionOrDev(),
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, error reporting disabled")
	} else if sentryutil.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error reporting enabled")
	}

	app, err := newApplication(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("Initialization complete")
	return app, nil
}

// newApplication wires every component behind the HTTP server.
func newApplication(cfg *config.Config, log *logger.Logger) (*Application, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	trackingClient := tracking.NewClient(cfg.TrackingAPIURL, cfg.HTTPClientTimeout, m)
	graphClient := messenger.NewClient(messenger.ClientConfig{
		BaseURL:         cfg.GraphAPIBaseURL,
		SendVersion:     cfg.GraphAPIVersion,
		ProfileVersion:  cfg.GraphProfileAPIVersion,
		PageAccessToken: cfg.PageAccessToken,
		Timeout:         cfg.HTTPClientTimeout,
		Metrics:         m,
	})

	templates, locale := bot.TemplatesForLocale(cfg.MessageLocale)
	log.WithField("locale", locale.String()).Info("Message templates selected")

	composer, err := bot.NewComposer(bot.ComposerConfig{
		Lookup:          trackingClient,
		Templates:       templates,
		TrackingPageURL: cfg.TrackingPageURL,
		Logger:          log.WithModule("bot"),
		Metrics:         m,
	})
	if err != nil {
		return nil, fmt.Errorf("composer: %w", err)
	}

	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		VerifyToken: cfg.VerifyToken,
		Composer:    composer,
		Sender:      graphClient,
		Profile:     graphClient,
		Logger:      log,
	},
		webhook.WithAppSecret(cfg.AppSecret),
		webhook.WithMaxEntries(cfg.MaxEntriesPerWebhook),
		webhook.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	if cfg.AppSecret == "" {
		log.Warn("APP_SECRET not set, webhook signatures are not verified")
	}
	if !cfg.MetricsAuthEnabled() {
		log.Info("METRICS_PASSWORD not set, /metrics is unauthenticated")
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		graphClient:    graphClient,
		trackingClient: trackingClient,
		composer:       composer,
		webhookHandler: webhookHandler,
	}
	app.router = app.newRouter()

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gzhttp.GzipHandler(app.router),
		ReadHeaderTimeout: config.WebhookHTTPReadHeader,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	return app, nil
}

func (a *Application) newRouter() *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if sentryutil.IsEnabled() {
		// Repanic so gin.Recovery still answers 500.
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/", a.helloWorld)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/webhook", a.webhookHandler.Verify)
	router.POST("/webhook", a.webhookHandler.Handle)
	router.POST("/set", a.webhookHandler.SetupProfile)
	router.GET("/metrics",
		basicAuth{username: a.cfg.MetricsUsername, password: a.cfg.MetricsPassword, metrics: a.metrics}.middleware(),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	return router
}

// Handler returns the root HTTP handler (router behind gzip).
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) helloWorld(c *gin.Context) {
	c.String(http.StatusOK, "Hello World")
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"version": buildinfo.VersionOrDev(),
	})
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a server
// error, then shuts down gracefully.
func (a *Application) Run() error {
	serverErr := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErr:
		a.logger.WithError(err).Error("HTTP server error")
		runErr = fmt.Errorf("http server: %w", err)
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown stops accepting requests, then drains in-flight entries so
// pending replies still reach the Send API, then flushes log and error sinks.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
		errs = append(errs, err)
	}

	a.logger.Info("Waiting for webhook entries to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		errs = append(errs, err)
	}

	if sentryutil.IsEnabled() && !sentryutil.Flush(2*time.Second) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("logger shutdown: %w", err))
	}
	return errors.Join(errs...)
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware assigns a request ID (from X-Request-Id or
// X-Correlation-Id, else a new UUID) and logs each request with a
// status-based level: 5xx=Error, 4xx=Warn, 404 and 2xx/3xx=Debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := ctxutil.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.Scope().SetTag("request_id", requestID)
		}

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", duration.Milliseconds()).
			WithField("client_ip", c.ClientIP()).
			WithRequestID(requestID)

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status >= 400 && status != http.StatusNotFound:
			entry.Warn("HTTP request rejected")
		case status == http.StatusNotFound:
			entry.Debug("HTTP request not found")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}
