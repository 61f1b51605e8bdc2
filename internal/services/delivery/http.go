// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPPath of the delivery endpoint relative to its base URL.
const HTTPPath = "/api/send_otp_simple.php"

type payload struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// HTTPSender posts codes to the remote delivery endpoint.
type HTTPSender struct {
	httpClient *http.Client
	endpoint   string
}

// HTTPOption configures an HTTPSender.
type HTTPOption func(*HTTPSender)

// WithTimeout bounds a single delivery.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSender) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// NewHTTPSender creates a sender for the endpoint under baseURL.
func NewHTTPSender(baseURL string, opts ...HTTPOption) *HTTPSender {
	s := &HTTPSender{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   strings.TrimSuffix(baseURL, "/") + HTTPPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send posts {email, otp}. Any 2xx response counts as delivered.
func (s *HTTPSender) Send(ctx context.Context, email, code string) error {
	body, err := json.Marshal(payload{Email: email, OTP: code})
	if err != nil {
		return fmt.Errorf("encoding delivery request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
