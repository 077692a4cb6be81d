package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-curation-client/internal/config"
)

const (
	HeaderAuthorization        = "Authorization"
	HeaderContentType          = "Content-Type"
	HeaderRateLimitBypassToken = "RateLimit-Bypass-Token"
	HeaderRateLimitBypassEcho  = "RateLimit-Bypass-Response"

	contentTypeJSON = "application/json"
)

// Base is the part of the settings every request is built from.
type Base struct {
	ServerURL            string
	RateLimitBypassToken string
}

func BaseFromSettings(s config.Settings) Base {
	return Base{
		ServerURL:            s.ServerURL,
		RateLimitBypassToken: s.RateLimitBypassToken,
	}
}

// RequestConfig is a fully formed request descriptor. The cancellation signal
// is attached when the request is materialized with NewRequest.
type RequestConfig struct {
	BaseURL string
	Method  string
	Path    string
	Header  http.Header
	Body    any
}

// BuildRequestConfig assembles the request for path (defaulting to "/").
// Authorization is only set for a non-empty siteToken and the bypass header
// only for a non-empty bypass token.
func BuildRequestConfig(base Base, method, path string, body any, siteToken string) RequestConfig {
	if path == "" {
		path = "/"
	}

	header := http.Header{}
	if siteToken != "" {
		header.Set(HeaderAuthorization, "Bearer "+siteToken)
	}
	if base.RateLimitBypassToken != "" {
		header.Set(HeaderRateLimitBypassToken, base.RateLimitBypassToken)
	}
	if body != nil {
		header.Set(HeaderContentType, contentTypeJSON)
	}

	return RequestConfig{
		BaseURL: base.ServerURL,
		Method:  method,
		Path:    path,
		Header:  header,
		Body:    body,
	}
}

func (rc RequestConfig) URL() string {
	return strings.TrimRight(rc.BaseURL, "/") + rc.Path
}

// NewRequest materializes the config; canceling ctx aborts the call.
func (rc RequestConfig) NewRequest(ctx context.Context) (*http.Request, error) {
	var bodyReader io.Reader
	if rc.Body != nil {
		jsonBody, err := json.Marshal(rc.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, rc.Method, rc.URL(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range rc.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}
