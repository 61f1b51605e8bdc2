// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/unirex/guardia-monitor/internal/breach"
)

// Path of the breach proxy relative to the base URL.
const Path = "/api/proxy_hipb.php"

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 8 << 20
)

// ErrUnexpectedStatus is returned for any response other than 200 or 404.
var ErrUnexpectedStatus = errors.New("unexpected lookup status")

// Client queries the breach proxy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds a single lookup.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the proxy at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the breaches recorded for email. An address without
// breaches yields an empty list and a nil error.
func (c *Client) Lookup(ctx context.Context, email string) ([]breach.Breach, error) {
	endpoint := c.baseURL + Path + "?email=" + url.QueryEscape(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return []breach.Breach{}, nil
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var breaches []breach.Breach
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&breaches); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}
	if breaches == nil {
		breaches = []breach.Breach{}
	}
	return breaches, nil
}
