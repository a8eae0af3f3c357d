// Package webhook serves the Messenger webhook: the subscription handshake,
// event deliveries, and the one-shot profile setup endpoint.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/globexvn/messenger-tracking-bot/internal/bot"
	"github.com/globexvn/messenger-tracking-bot/internal/ctxutil"
	domerrors "github.com/globexvn/messenger-tracking-bot/internal/errors"
	"github.com/globexvn/messenger-tracking-bot/internal/logger"
	"github.com/globexvn/messenger-tracking-bot/internal/messenger"
	"github.com/globexvn/messenger-tracking-bot/internal/metrics"
	"github.com/globexvn/messenger-tracking-bot/internal/sentry"
)

// Response bodies expected by the platform and by operators.
const (
	EventReceived     = "EVENT_RECEIVED"
	SetupDone         = "Setup done!"
	SetupFailed       = "Something wrongs"
	modeSubscribe     = "subscribe"
	profileFlightKey  = "messenger_profile"
	defaultMaxEntries = 100
	defaultMaxBody    = 1 << 20
)

// Composer maps an inbound event to a reply.
type Composer interface {
	Compose(ctx context.Context, ev bot.Event) (bot.Response, bool)
}

// Sender delivers a reply through the Send API.
type Sender interface {
	SendMessage(ctx context.Context, recipientID string, msg messenger.Message) (*messenger.SendResponse, error)
}

// ProfileSetter pushes the page's Messenger profile.
type ProfileSetter interface {
	SetProfile(ctx context.Context, profile messenger.Profile) error
}

// HandlerConfig holds the required dependencies of a Handler.
type HandlerConfig struct {
	VerifyToken string
	Composer    Composer
	Sender      Sender
	Profile     ProfileSetter
	Logger      *logger.Logger
}

// Handler handles Messenger webhook requests.
type Handler struct {
	verifyToken string
	composer    Composer
	sender      Sender
	profile     ProfileSetter
	logger      *logger.Logger
	metrics     *metrics.Metrics

	appSecret            string
	maxEntriesPerWebhook int
	maxBodyBytes         int64

	wg            sync.WaitGroup     // per-entry goroutines, drained on shutdown
	profileFlight singleflight.Group // coalesces concurrent POST /set
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig, opts ...HandlerOption) (*Handler, error) {
	var errs []error
	if cfg.VerifyToken == "" {
		errs = append(errs, domerrors.NewValidationError("verify_token", "required"))
	}
	if cfg.Composer == nil || cfg.Sender == nil || cfg.Profile == nil || cfg.Logger == nil {
		errs = append(errs, domerrors.NewValidationError("handler", "composer, sender, profile and logger are required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("create webhook handler: %w", err)
	}

	h := &Handler{
		verifyToken:          cfg.VerifyToken,
		composer:             cfg.Composer,
		sender:               cfg.Sender,
		profile:              cfg.Profile,
		logger:               cfg.Logger.WithModule("webhook"),
		maxEntriesPerWebhook: defaultMaxEntries,
		maxBodyBytes:         defaultMaxBody,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Verify answers the subscription handshake (GET /webhook).
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		h.recordVerification("bad_request")
		c.Status(http.StatusBadRequest)
		return
	}

	if mode != modeSubscribe || subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		h.logger.WithField("mode", mode).WarnContext(c.Request.Context(), "Webhook verification rejected")
		h.recordVerification("forbidden")
		c.Status(http.StatusForbidden)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "WEBHOOK_VERIFIED")
	h.recordVerification("verified")
	c.String(http.StatusOK, challenge)
}

// Handle accepts an event delivery (POST /webhook). Page deliveries are
// acknowledged immediately and each entry is processed in its own goroutine.
func (h *Handler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		h.logger.WithError(err).WarnContext(ctx, "Failed to read webhook body")
		h.recordHTTPError("invalid_payload")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Status(http.StatusRequestEntityTooLarge)
		} else {
			c.Status(http.StatusBadRequest)
		}
		return
	}

	if h.appSecret != "" {
		if err := messenger.VerifySignature(h.appSecret, body, c.GetHeader(messenger.SignatureHeader)); err != nil {
			h.logger.WithError(err).WarnContext(ctx, "Invalid webhook signature")
			h.recordHTTPError("invalid_signature")
			c.Status(http.StatusForbidden)
			return
		}
	}

	envelope, err := decodeEnvelope(body)
	if err != nil {
		h.logger.WithError(err).WarnContext(ctx, "Rejected webhook delivery")
		h.recordHTTPError("not_page")
		c.Status(http.StatusNotFound)
		return
	}

	entries := envelope.Entry
	if len(entries) > h.maxEntriesPerWebhook {
		h.logger.WithField("entry_count", len(entries)).
			WithField("limit", h.maxEntriesPerWebhook).
			WarnContext(ctx, "Too many entries in webhook delivery; truncating")
		if h.metrics != nil {
			h.metrics.RecordEntriesDropped(len(entries) - h.maxEntriesPerWebhook)
		}
		entries = entries[:h.maxEntriesPerWebhook]
	}

	c.String(http.StatusOK, EventReceived)

	base := ctxutil.PreserveTracing(ctx)
	for _, entry := range entries {
		h.dispatch(base, entry)
	}
}

// decodeEnvelope parses a delivery and rejects anything that is not a page
// subscription event.
func decodeEnvelope(body []byte) (*messenger.Envelope, error) {
	var envelope messenger.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", domerrors.ErrNotPageObject, err)
	}
	if envelope.Object != messenger.ObjectPage {
		return nil, fmt.Errorf("%w: got %q", domerrors.ErrNotPageObject, envelope.Object)
	}
	return &envelope, nil
}

// dispatch runs one entry in the background. The goroutine is not awaited
// by the request; Shutdown waits for it.
func (h *Handler) dispatch(ctx context.Context, entry messenger.Entry) {
	if h.metrics != nil {
		h.metrics.EntryStarted()
	}
	h.wg.Go(func() {
		defer func() {
			if h.metrics != nil {
				h.metrics.EntryFinished()
			}
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).
					WithField("stack", string(debug.Stack())).
					ErrorContext(ctx, "Panic in entry processing")
				sentry.CaptureException(ctx, fmt.Errorf("panic in entry processing: %v", r), map[string]string{"component": "webhook"})
			}
		}()
		h.processEntry(ctx, entry)
	})
}

// processEntry handles the first messaging event of an entry.
func (h *Handler) processEntry(ctx context.Context, entry messenger.Entry) {
	start := time.Now()
	ctx = ctxutil.WithPageID(ctx, entry.ID)

	if len(entry.Messaging) == 0 {
		h.logger.DebugContext(ctx, "Entry without messaging event")
		h.recordEvent(bot.EventUnknown, "skipped", start)
		return
	}

	ev, ok := bot.EventFromMessaging(entry.Messaging[0])
	ctx = ctxutil.WithSenderID(ctx, ev.SenderID)
	if ev.MessageID != "" {
		ctx = ctxutil.WithMessageID(ctx, ev.MessageID)
	}
	if !ok {
		h.logger.DebugContext(ctx, "Ignoring messaging event without message or postback")
		h.recordEvent(bot.EventUnknown, "skipped", start)
		return
	}

	resp, ok := h.composer.Compose(ctx, ev)
	if !ok {
		h.recordEvent(ev.Kind, "skipped", start)
		return
	}

	status := "success"
	if err := h.sendResponse(ctx, ev.SenderID, resp); err != nil {
		status = "error"
	}
	h.recordEvent(ev.Kind, status, start)
}

// sendResponse delivers resp to the sender. Failures are logged and reported
// but never retried; the returned error only feeds metrics.
func (h *Handler) sendResponse(ctx context.Context, recipientID string, resp bot.Response) error {
	log := h.logger.WithField("response_type", resp.Kind())

	out, err := h.sender.SendMessage(ctx, recipientID, resp.Message())
	if err != nil {
		log.WithError(err).ErrorContext(ctx, "Unable to send message")
		sentry.CaptureException(ctx, err, map[string]string{"service": messenger.ServiceSend})
		return err
	}

	if out != nil && out.MessageID != "" {
		log = log.WithField("sent_message_id", out.MessageID)
	}
	log.InfoContext(ctx, "Message sent")
	return nil
}

// SetupProfile pushes the default Messenger profile (POST /set). Both
// outcomes answer 200 with a plain-text status.
func (h *Handler) SetupProfile(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())

	_, err, shared := h.profileFlight.Do(profileFlightKey, func() (any, error) {
		return nil, h.profile.SetProfile(ctx, messenger.DefaultProfile())
	})
	if shared && h.metrics != nil {
		h.metrics.RecordSingleflightDedup("profile")
	}

	if err != nil {
		h.logger.WithError(err).ErrorContext(ctx, "Messenger profile setup failed")
		sentry.CaptureException(ctx, err, map[string]string{"service": messenger.ServiceProfile})
		c.String(http.StatusOK, SetupFailed)
		return
	}

	h.logger.InfoContext(ctx, "Messenger profile setup done")
	c.String(http.StatusOK, SetupDone)
}

// Shutdown waits for all in-flight entries to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) recordEvent(kind bot.EventKind, status string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordWebhookEvent(kind.String(), status, time.Since(start).Seconds())
	}
}

func (h *Handler) recordVerification(result string) {
	if h.metrics != nil {
		h.metrics.RecordVerification(result)
	}
}

func (h *Handler) recordHTTPError(errorType string) {
	if h.metrics != nil {
		h.metrics.RecordHTTPError(errorType, "webhook")
	}
}
