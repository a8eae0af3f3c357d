package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	domerrors "github.com/globexvn/messenger-tracking-bot/internal/errors"
	"github.com/globexvn/messenger-tracking-bot/internal/metrics"
)

// Service labels used in metrics and errors.
const (
	ServiceSend    = "send"
	ServiceProfile = "profile"
)

// maxErrorBody bounds how much of a failed response is read for diagnostics.
const maxErrorBody = 4 << 10

// ClientConfig configures the Graph API client.
type ClientConfig struct {
	BaseURL         string // e.g. https://graph.facebook.com
	SendVersion     string // e.g. v15.0
	ProfileVersion  string // e.g. v2.6
	PageAccessToken string
	Timeout         time.Duration
	HTTPClient      *http.Client     // optional, overrides Timeout
	Metrics         *metrics.Metrics  // optional
}

// Client calls the Send API and the Messenger Profile API. Every call is a
// single attempt; failures are returned as *errors.APIError.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	sendVersion    string
	profileVersion string
	token          string
	metrics        *metrics.Metrics
}

// NewClient creates a Graph API client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        cfg.BaseURL,
		sendVersion:    cfg.SendVersion,
		profileVersion: cfg.ProfileVersion,
		token:          cfg.PageAccessToken,
		metrics:        cfg.Metrics,
	}
}

// graphError is the Graph API error body.
type graphError struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// SendMessage delivers msg to the user identified by recipientID (a PSID).
func (c *Client) SendMessage(ctx context.Context, recipientID string, msg Message) (*SendResponse, error) {
	if recipientID == "" {
		return nil, domerrors.NewValidationError("recipient.id", "required")
	}
	body := SendRequest{Recipient: Participant{ID: recipientID}, Message: msg}

	var out SendResponse
	if err := c.post(ctx, ServiceSend, c.sendVersion, "/me/messages", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetProfile overwrites the page's Messenger profile.
func (c *Client) SetProfile(ctx context.Context, profile Profile) error {
	var out struct {
		Result string `json:"result"`
	}
	return c.post(ctx, ServiceProfile, c.profileVersion, "/me/messenger_profile", profile, &out)
}

func (c *Client) endpoint(version, path string) string {
	return c.baseURL + "/" + version + path
}

func (c *Client) post(ctx context.Context, service, version, path string, in, out any) (err error) {
	endpoint := c.endpoint(version, path)
	start := time.Now()
	defer func() {
		c.record(service, err, time.Since(start))
	}()

	payload, err := json.Marshal(in)
	if err != nil {
		return domerrors.NewAPIError(service, endpoint, 0, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return domerrors.NewAPIError(service, endpoint, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	q := url.Values{}
	q.Set("access_token", c.token)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domerrors.NewAPIError(service, endpoint, 0, domerrors.ClassifyTransport(stripURLError(err)))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domerrors.NewAPIError(service, endpoint, resp.StatusCode, readGraphError(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return domerrors.NewAPIError(service, endpoint, resp.StatusCode,
			fmt.Errorf("%w: %w", domerrors.ErrMalformedResponse, err))
	}
	return nil
}

func (c *Client) record(service string, err error, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordOutbound(service, metrics.OutcomeLabel(err), d.Seconds())
}

func readGraphError(r io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var ge graphError
	if err := json.Unmarshal(raw, &ge); err == nil && ge.Error.Message != "" {
		return fmt.Errorf("graph error %d (%s): %s", ge.Error.Code, ge.Error.Type, ge.Error.Message)
	}
	if len(raw) == 0 {
		return errors.New("empty error body")
	}
	return fmt.Errorf("unexpected response: %s", raw)
}

// stripURLError drops the request URL (which carries the page token) from
// transport errors.
func stripURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request failed: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
