package app

import (
	"bytes"
	"context"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globexvn/messenger-tracking-bot/internal/config"
	"github.com/globexvn/messenger-tracking-bot/internal/logger"
	"github.com/globexvn/messenger-tracking-bot/internal/messenger"
	"github.com/globexvn/messenger-tracking-bot/internal/webhook"
)

type graphCall struct {
	path  string
	token string
	body  []byte
}

// stubGraph records Send and Profile API calls.
type stubGraph struct {
	mu    sync.Mutex
	calls []graphCall
	seen  chan struct{}
}

func (g *stubGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	g.mu.Lock()
	g.calls = append(g.calls, graphCall{path: r.URL.Path, token: r.URL.Query().Get("access_token"), body: body})
	g.mu.Unlock()
	select {
	case g.seen <- struct{}{}:
	default:
	}

	if strings.HasSuffix(r.URL.Path, "/me/messages") {
		_, _ = io.WriteString(w, `{"recipient_id":"USER_1","message_id":"m_1"}`)
		return
	}
	_, _ = io.WriteString(w, `{"result":"success"}`)
}

func (g *stubGraph) snapshot() []graphCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]graphCall(nil), g.calls...)
}

type testEnv struct {
	app     *Application
	graph   *stubGraph
	lookups chan string
	handler http.Handler
}

func setupTestApp(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	lookups := make(chan string, 8)
	trackingSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("keySearch")
		lookups <- code
		_ = json.NewEncoder(w).Encode(map[string]any{"isSuccess": code == "ABC123"})
	}))
	t.Cleanup(trackingSrv.Close)

	graph := &stubGraph{seen: make(chan struct{}, 8)}
	graphSrv := httptest.NewServer(graph)
	t.Cleanup(graphSrv.Close)

	cfg := &config.Config{
		VerifyToken:            "verify-me",
		PageAccessToken:        "page-token",
		AppSecret:              "app-secret",
		Port:                   "0",
		LogLevel:               "error",
		ShutdownTimeout:        5 * time.Second,
		MaxEntriesPerWebhook:   config.DefaultMaxEntriesPerWebhook,
		GraphAPIBaseURL:        graphSrv.URL,
		GraphAPIVersion:        config.DefaultGraphAPIVersion,
		GraphProfileAPIVersion: config.DefaultGraphProfileAPIVersion,
		TrackingAPIURL:         trackingSrv.URL + "/tracking",
		TrackingPageURL:        config.DefaultTrackingPageURL,
		MessageLocale:          config.DefaultMessageLocale,
		HTTPClientTimeout:      5 * time.Second,
		MetricsUsername:        "prometheus",
	}
	if mutate != nil {
		mutate(cfg)
	}

	app, err := newApplication(cfg, logger.NewWithWriter("error", io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.webhookHandler.Shutdown(ctx)
	})

	return &testEnv{
		app:     app,
		graph:   graph,
		lookups: lookups,
		handler: app.Handler(),
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Graph API call")
	}
}

func TestHelloWorld(t *testing.T) {
	t.Parallel()
	env := setupTestApp(t, nil)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello World", w.Body.String())
}

func TestLivenessCheck(t *testing.T) {
	t.Parallel()
	env := setupTestApp(t, nil)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "alive", response["status"])
	assert.NotEmpty(t, response["version"])

	w = env.do(t, httptest.NewRequest(http.MethodHead, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	t.Parallel()
	env := setupTestApp(t, nil)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36, "generated UUID")

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Correlation-Id", "corr-42")
	w = env.do(t, req)
	assert.Equal(t, "corr-42", w.Header().Get(RequestIDHeader))
}

func TestWebhookVerification(t *testing.T) {
	t.Parallel()
	env := setupTestApp(t, nil)

	w := env.do(t, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=CHALLENGE_ACCEPTED", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CHALLENGE_ACCEPTED", w.Body.String())

	w = env.do(t, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=x", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookTrackingRoundTrip(t *testing.T) {
	t.Parallel()
	env := setupTestApp(t, nil)

	body := []byte(`{"object":"page","entry":[{"id":"PAGE_1","time":1,"messaging":[` +
		`{"sender":{"id":"USER_1"},"recipient":{"id":"PAGE_1"},"timestamp":1,` +
		`"message":{"mid":"mid.1","text":"/t ABC123"}}]}]}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(messenger.SignatureHeader, messenger.Sign("app-secret", body))

	w := env.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, webhook.EventReceived, w.Body.String())

	select {
	case code := <-env.lookups:
		assert.Equal(t, "ABC123", code)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tracking lookup")
	}
	waitFor(t, env.graph.seen)

	calls := env.graph.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "/"+config.DefaultGraphAPIVersion+"/me/messages", calls[0].path)
	assert.Equal(t, "page-token", calls[0].token)

	var sent messenger.SendRequest
	require.NoError(t, json.Unmarshal(calls[0].body, &sent))
	assert.Equal(t, "USER_1", sent.Recipient.ID)
	assert.Contains(t, sent.Message.Text, "ABC123")
	assert.Contains(t, sent.Message.Text, config.DefaultTrackingPageURL+"?trackingNumber=ABC123")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()
	env := setupTestApp(t, nil)

	body := []byte(`{"object":"page","entry":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set(messenger.SignatureHeader, messenger.Sign("other-secret", body))

	w := env.do(t, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSetupProfile(t *testing.T) {
	t.Parallel()
	env := setupTestApp(t, nil)

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/set", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, webhook.SetupDone, w.Body.String())

	calls := env.graph.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "/"+config.DefaultGraphProfileAPIVersion+"/me/messenger_profile", calls[0].path)

	var profile messenger.Profile
	require.NoError(t, json.Unmarshal(calls[0].body, &profile))
	assert.Equal(t, messenger.DefaultProfile(), profile)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := setupTestApp(t, func(cfg *config.Config) {
		cfg.MetricsPassword = "scrape"
	})

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prometheus", "scrape")
	req.Header.Set("Accept-Encoding", "gzip")
	w = env.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	text, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(text), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	env := setupTestApp(t, nil)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
