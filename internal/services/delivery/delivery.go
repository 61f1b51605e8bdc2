// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package delivery sends issued codes to the address they were issued for.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/unirex/guardia-monitor/internal/config"
)

// ErrDeliveryFailed is returned when the code could not be handed over.
var ErrDeliveryFailed = errors.New("code delivery failed")

// Sender delivers a code to an email address.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

// New returns the Sender selected by cfg.Delivery.Mode. expiry is quoted in
// the SMTP message body.
func New(cfg *config.Config, expiry time.Duration) (Sender, error) {
	switch cfg.Delivery.Mode {
	case config.DeliveryHTTP, "":
		return NewHTTPSender(cfg.Delivery.BaseURL, WithTimeout(cfg.Delivery.Timeout)), nil
	case config.DeliverySMTP:
		return NewSMTPSender(&cfg.SMTP, expiry)
	case config.DeliveryLog:
		return LogSender{}, nil
	default:
		return nil, fmt.Errorf("unknown delivery mode: %q", cfg.Delivery.Mode)
	}
}

// LogSender writes the code to the log instead of delivering it. Meant for
// local development only.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, email, code string) error {
	slog.WarnContext(ctx, "code delivery disabled, logging code", "email", email, "code", code)
	return nil
}
