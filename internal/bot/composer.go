package bot

import (
	"context"
	"net/url"
	"strings"

	domerrors "github.com/globexvn/messenger-tracking-bot/internal/errors"
	"github.com/globexvn/messenger-tracking-bot/internal/logger"
	"github.com/globexvn/messenger-tracking-bot/internal/messenger"
	"github.com/globexvn/messenger-tracking-bot/internal/metrics"
	"github.com/globexvn/messenger-tracking-bot/internal/tracking"
)

// TrackCommand marks a tracking request anywhere in the message text.
const TrackCommand = "/t"

// TrackingNumberParam is the query parameter read by the public tracking page.
const TrackingNumberParam = "trackingNumber"

// Lookuper queries the order lookup service.
type Lookuper interface {
	Lookup(ctx context.Context, code string) (tracking.Result, error)
}

// ComposerConfig holds the dependencies of a Composer.
type ComposerConfig struct {
	Lookup          Lookuper
	Templates       Templates
	TrackingPageURL string
	Logger          *logger.Logger
	Metrics         *metrics.Metrics // optional
}

// Composer maps events to replies.
type Composer struct {
	lookup    Lookuper
	templates Templates
	pageURL   *url.URL
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewComposer creates a Composer. The tracking page URL must be absolute.
func NewComposer(cfg ComposerConfig) (*Composer, error) {
	pageURL, err := url.Parse(cfg.TrackingPageURL)
	if err != nil || !pageURL.IsAbs() {
		return nil, domerrors.NewValidationError("tracking_page_url", "must be an absolute URL")
	}
	return &Composer{
		lookup:    cfg.Lookup,
		templates: cfg.Templates,
		pageURL:   pageURL,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// Compose returns the reply for ev. ok is false for events that get no reply.
func (c *Composer) Compose(ctx context.Context, ev Event) (resp Response, ok bool) {
	switch ev.Kind {
	case EventMessage:
		return c.ComposeMessage(ctx, ev.Text, ev.Attachments), true
	case EventPostback:
		return c.ComposePostback(ev.Payload), true
	default:
		return Response{}, false
	}
}

// ComposeMessage evaluates, in order: a /t command, an image attachment, and
// finally the invalid-syntax help.
func (c *Composer) ComposeMessage(ctx context.Context, text string, attachments []Attachment) Response {
	if strings.Contains(text, TrackCommand) {
		return c.track(ctx, ExtractTrackingCode(text))
	}
	if len(attachments) > 0 {
		return c.confirmImage(attachments[0].URL)
	}
	return TextResponse(c.templates.InvalidSyntax)
}

// ComposePostback maps a button payload to its reply. Unknown payloads get
// the same help text as the Tracking menu item.
func (c *Composer) ComposePostback(payload string) Response {
	switch payload {
	case messenger.PayloadYes:
		return TextResponse(c.templates.Thanks)
	case messenger.PayloadNo:
		return TextResponse(c.templates.RetryImage)
	default:
		return TextResponse(c.templates.SyntaxHelp)
	}
}

// ExtractTrackingCode returns the second space-separated field of text, or ""
// when there is none. Comma-separated code lists are passed through as one code.
func ExtractTrackingCode(text string) string {
	fields := strings.Split(text, " ")
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// TrackingURL returns the public tracking page link for code.
func (c *Composer) TrackingURL(code string) string {
	u := *c.pageURL
	q := u.Query()
	q.Set(TrackingNumberParam, code)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Composer) track(ctx context.Context, code string) Response {
	log := c.logger.WithField("tracking_code", code)

	if code == "" {
		c.recordLookup("skipped")
		log.DebugContext(ctx, "Tracking command without a code")
		return TextResponse(c.templates.NotFound(code))
	}

	result, err := c.lookup.Lookup(ctx, code)
	if err != nil {
		c.recordLookup("error")
		log.WithError(err).WarnContext(ctx, "Order lookup failed, replying not found")
		return TextResponse(c.templates.NotFound(code))
	}
	if !result.Found {
		c.recordLookup("not_found")
		log.InfoContext(ctx, "Order not found")
		return TextResponse(c.templates.NotFound(code))
	}

	c.recordLookup("found")
	log.DebugContext(ctx, "Order found")
	return TextResponse(c.templates.Found(code, c.TrackingURL(code)))
}

func (c *Composer) confirmImage(imageURL string) Response {
	return Response{
		Template: &AttachmentTemplate{
			ImageURL: imageURL,
			Title:    c.templates.ImageTitle,
			Subtitle: c.templates.ImageSubtitle,
			Buttons: []Button{
				{Title: c.templates.YesTitle, Payload: messenger.PayloadYes},
				{Title: c.templates.NoTitle, Payload: messenger.PayloadNo},
			},
		},
	}
}

func (c *Composer) recordLookup(result string) {
	if c.metrics != nil {
		c.metrics.RecordLookup(result)
	}
}
