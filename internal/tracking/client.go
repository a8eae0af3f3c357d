// Package tracking queries the order lookup service by tracking code.
package tracking

import (
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

// Service is the metrics and error label for the lookup service.
const Service = "tracking"

// SortOrder lists the newest order and status first.
const SortOrder = "createdAt|desc,statusId|desc"

// Result is the outcome of a lookup. Only the success flag is interpreted.
type Result struct {
	Code  string
	Found bool
}

type lookupResponse struct {
	IsSuccess bool `json:"isSuccess"`
}

// Client is the order lookup service client.
type Client struct {
	httpClient *http.Client
	endpoint   string
	metrics    *metrics.Metrics
}

// NewClient creates a lookup client for endpoint. m may be nil.
func NewClient(endpoint string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		endpoint: endpoint,
		metrics:  m,
	}
}

// WithHTTPClient replaces the underlying HTTP client (tests, custom transports).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Lookup issues a single GET for code. A non-2xx status, a transport error or
// an undecodable body is returned as an error; isSuccess=false is a
// successful lookup with Found=false.
func (c *Client) Lookup(ctx context.Context, code string) (result Result, err error) {
	result.Code = code
	if code == "" {
		return result, domerrors.NewValidationError("keySearch", "tracking code is empty")
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordOutbound(Service, metrics.OutcomeLabel(err), time.Since(start).Seconds())
		}
	}()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return result, domerrors.NewAPIError(Service, c.endpoint, 0, fmt.Errorf("parse endpoint: %w", err))
	}
	q := u.Query()
	q.Set("keySearch", code)
	q.Set("sort", SortOrder)
	u.RawQuery = q.Encode()
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return result, domerrors.NewAPIError(Service, target, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return result, domerrors.NewAPIError(Service, target, 0, domerrors.ClassifyTransport(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return result, domerrors.NewAPIError(Service, target, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return result, domerrors.NewAPIError(Service, target, resp.StatusCode,
			fmt.Errorf("%w: %w", domerrors.ErrMalformedResponse, err))
	}

	result.Found = body.IsSuccess
	return result, nil
}
