package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-curation-client/internal/config"
)

// Client wraps the curation REST API. Every endpoint returns a normalized
// Response and never an error.
type Client struct {
	settings   config.SettingsReader
	httpClient *http.Client
	metrics    *Metrics
	nowFunc    func() time.Time
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client. No application level
// timeout is applied unless the supplied client has one.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records outcomes to m.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithNowFunc sets the clock used for duration metrics (primarily for testing).
func WithNowFunc(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowFunc = now
	}
}

// NewClient reads the server URL and bypass token from settings on every call,
// so settings changes apply to the next request.
func NewClient(settings config.SettingsReader, opts ...ClientOption) *Client {
	c := &Client{
		settings: settings,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

func (c *Client) requestConfig(method, path string, body any, siteToken string) RequestConfig {
	return BuildRequestConfig(BaseFromSettings(c.settings.Get()), method, path, body, siteToken)
}

// do is the single suspension point of an endpoint call. Non-2xx responses
// come back as *StatusError; a 2xx body that does not decode into out comes
// back as *MalformedResponseError.
func (c *Client) do(ctx context.Context, rc RequestConfig, out any) (*http.Response, error) {
	req, err := rc.NewRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", rc.Method, rc.Path, ctxErr)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", rc.Method, rc.Path, ctxErr)
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &StatusError{Response: resp, Body: body}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp, &MalformedResponseError{Status: resp.StatusCode, Err: err}
		}
	}
	return resp, nil
}

func (c *Client) observe(op Operation, start time.Time, outcome Outcome) {
	c.metrics.observe(op, outcome, c.nowFunc().Sub(start))
}
