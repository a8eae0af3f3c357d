package bot

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"testing"

	domerrors "github.com/globexvn/messenger-tracking-bot/internal/errors"
	"github.com/globexvn/messenger-tracking-bot/internal/logger"
	"github.com/globexvn/messenger-tracking-bot/internal/metrics"
	"github.com/globexvn/messenger-tracking-bot/internal/tracking"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	mu    sync.Mutex
	found bool
	err   error
	codes []string
}

func (f *fakeLookup) Lookup(_ context.Context, code string) (tracking.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	if f.err != nil {
		return tracking.Result{Code: code}, f.err
	}
	return tracking.Result{Code: code, Found: f.found}, nil
}

func (f *fakeLookup) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.codes...)
}

const testPageURL = "https://globex.vn/tra-cuu"

func newComposer(t *testing.T, lookup Lookuper) (*Composer, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	c, err := NewComposer(ComposerConfig{
		Lookup:          lookup,
		Templates:       VietnameseTemplates,
		TrackingPageURL: testPageURL,
		Logger:          logger.NewWithWriter("debug", io.Discard),
		Metrics:         m,
	})
	require.NoError(t, err)
	return c, m
}

func TestNewComposer_RejectsRelativePageURL(t *testing.T) {
	t.Parallel()
	_, err := NewComposer(ComposerConfig{TrackingPageURL: "/tra-cuu", Logger: logger.NewWithWriter("info", io.Discard)})
	require.Error(t, err)
	assert.True(t, domerrors.IsInvalidInput(err))
}

func TestComposeMessage_TrackFound(t *testing.T) {
	t.Parallel()
	lookup := &fakeLookup{found: true}
	c, m := newComposer(t, lookup)

	resp := c.ComposeMessage(context.Background(), "/t ABC123", nil)

	require.Nil(t, resp.Template)
	assert.Contains(t, resp.Text, "ABC123")
	assert.Contains(t, resp.Text, "https://globex.vn/tra-cuu?trackingNumber=ABC123")
	assert.Equal(t, []string{"ABC123"}, lookup.calls())
	assert.InDelta(t, 1, testutil.ToFloat64(m.LookupResultsTotal.WithLabelValues("found")), 0)

	// The embedded link parses back to the same code.
	link := c.TrackingURL("ABC123")
	assert.Contains(t, resp.Text, link)
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "ABC123", u.Query().Get(TrackingNumberParam))
}

func TestComposeMessage_TrackFoundForAnyCode(t *testing.T) {
	t.Parallel()
	c, _ := newComposer(t, &fakeLookup{found: true})

	for _, code := range []string{"X", "VN0001234", "a-b_c", "SPX 1", "mã&1"} {
		text := "/t " + code
		resp := c.ComposeMessage(context.Background(), text, nil)
		want := ExtractTrackingCode(text)
		assert.Contains(t, resp.Text, c.TrackingURL(want), text)
		u, err := url.Parse(c.TrackingURL(want))
		require.NoError(t, err)
		assert.Equal(t, want, u.Query().Get(TrackingNumberParam))
	}
}

func TestComposeMessage_TrackNotFoundOrFailing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		lookup *fakeLookup
		label  string
	}{
		{name: "negative result", lookup: &fakeLookup{found: false}, label: "not_found"},
		{name: "lookup error", lookup: &fakeLookup{err: errors.New("connection reset")}, label: "error"},
		{name: "lookup timeout", lookup: &fakeLookup{err: domerrors.ErrTimeout}, label: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, m := newComposer(t, tt.lookup)

			resp := c.ComposeMessage(context.Background(), "/t ZZ999", nil)

			assert.Equal(t, VietnameseTemplates.NotFound("ZZ999"), resp.Text)
			assert.Nil(t, resp.Template)
			assert.InDelta(t, 1, testutil.ToFloat64(m.LookupResultsTotal.WithLabelValues(tt.label)), 0)
		})
	}
}

func TestComposeMessage_TrackWithoutCode(t *testing.T) {
	t.Parallel()
	lookup := &fakeLookup{found: true}
	c, _ := newComposer(t, lookup)

	resp := c.ComposeMessage(context.Background(), "/t", nil)

	assert.Equal(t, VietnameseTemplates.NotFound(""), resp.Text)
	assert.Empty(t, lookup.calls())
}

func TestComposeMessage_CommandBeatsAttachment(t *testing.T) {
	t.Parallel()
	lookup := &fakeLookup{found: false}
	c, _ := newComposer(t, lookup)

	resp := c.ComposeMessage(context.Background(), "please /t C1", []Attachment{{URL: "https://img/1.png"}})

	assert.Nil(t, resp.Template)
	// Second whitespace field, whatever it is.
	assert.Equal(t, []string{"/t"}, lookup.calls())
}

func TestComposeMessage_MultiCodeIsSingleLookup(t *testing.T) {
	t.Parallel()
	lookup := &fakeLookup{found: true}
	c, _ := newComposer(t, lookup)

	c.ComposeMessage(context.Background(), "/t A1,B2", nil)

	assert.Equal(t, []string{"A1,B2"}, lookup.calls())
}

func TestComposeMessage_Attachment(t *testing.T) {
	t.Parallel()
	lookup := &fakeLookup{}
	c, _ := newComposer(t, lookup)

	for _, text := range []string{"", "look at this", "/ t not a command"} {
		resp := c.ComposeMessage(context.Background(), text, []Attachment{
			{Type: "image", URL: "https://cdn.example/first.jpg"},
			{Type: "image", URL: "https://cdn.example/second.jpg"},
		})

		require.NotNil(t, resp.Template, text)
		assert.Equal(t, "https://cdn.example/first.jpg", resp.Template.ImageURL)
		assert.Equal(t, "Is this the right picture?", resp.Template.Title)
		assert.Equal(t, "Tap a button to answer.", resp.Template.Subtitle)
		assert.Equal(t, []Button{{Title: "Yes!", Payload: "yes"}, {Title: "No!", Payload: "no"}}, resp.Template.Buttons)
	}
	assert.Empty(t, lookup.calls())
}

func TestComposeMessage_Fallback(t *testing.T) {
	t.Parallel()
	lookup := &fakeLookup{}
	c, _ := newComposer(t, lookup)

	for _, text := range []string{"", "hello", "T ABC", "track ABC"} {
		resp := c.ComposeMessage(context.Background(), text, nil)
		assert.Equal(t, VietnameseTemplates.InvalidSyntax, resp.Text, text)
	}
	assert.Empty(t, lookup.calls())
}

func TestComposePostback(t *testing.T) {
	t.Parallel()
	c, _ := newComposer(t, &fakeLookup{})

	assert.Equal(t, "Thanks!", c.ComposePostback("yes").Text)
	assert.Equal(t, "Oops, try sending another image.", c.ComposePostback("no").Text)

	help := c.ComposePostback("TRACKING")
	assert.Equal(t, VietnameseTemplates.SyntaxHelp, help.Text)
	for _, payload := range []string{"get_started", "xyz", "", "Yes"} {
		assert.Equal(t, help, c.ComposePostback(payload), payload)
	}
}

func TestCompose_DispatchesByKind(t *testing.T) {
	t.Parallel()
	c, _ := newComposer(t, &fakeLookup{found: true})
	ctx := context.Background()

	resp, ok := c.Compose(ctx, Event{Kind: EventMessage, SenderID: "u", Text: "/t K1"})
	assert.True(t, ok)
	assert.Contains(t, resp.Text, "K1")

	resp, ok = c.Compose(ctx, Event{Kind: EventPostback, SenderID: "u", Payload: "yes"})
	assert.True(t, ok)
	assert.Equal(t, "Thanks!", resp.Text)

	_, ok = c.Compose(ctx, Event{SenderID: "u"})
	assert.False(t, ok)
}

func TestExtractTrackingCode(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"/t ABC123":  "ABC123",
		"/t ABC 123": "ABC",
		"/t  ABC":    "",
		"/t":         "",
		"/tABC":      "",
		"hi /t X":    "/t",
		"/t a,b,c":   "a,b,c",
		"":           "",
		"xxx":        "",
	}
	for text, want := range tests {
		assert.Equal(t, want, ExtractTrackingCode(text), text)
	}
}

func TestTrackingURL_KeepsExistingQuery(t *testing.T) {
	t.Parallel()
	c, err := NewComposer(ComposerConfig{
		TrackingPageURL: "https://globex.vn/tra-cuu?lang=vi",
		Templates:       EnglishTemplates,
		Logger:          logger.NewWithWriter("info", io.Discard),
	})
	require.NoError(t, err)

	u, err := url.Parse(c.TrackingURL("A&B"))
	require.NoError(t, err)
	assert.Equal(t, "vi", u.Query().Get("lang"))
	assert.Equal(t, "A&B", u.Query().Get(TrackingNumberParam))
}
