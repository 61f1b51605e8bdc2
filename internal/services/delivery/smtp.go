// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/unirex/guardia-monitor/internal/config"
	"codeberg.org/unirex/guardia-monitor/internal/i18n"
	"github.com/wneessen/go-mail"
)

// SMTPSender mails codes through an SMTP relay.
type SMTPSender struct {
	cfg    *config.SMTPConfig
	expiry time.Duration
}

// NewSMTPSender creates a new SMTP sender.
func NewSMTPSender(cfg *config.SMTPConfig, expiry time.Duration) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &SMTPSender{cfg: cfg, expiry: expiry}, nil
}

// Send mails the code in the language carried by ctx.
func (s *SMTPSender) Send(ctx context.Context, email, code string) error {
	msg, err := s.message(ctx, email, code)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

func (s *SMTPSender) message(ctx context.Context, to, code string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	bodyID := "otp_email_body"
	if s.expiry <= 0 {
		bodyID = "otp_email_body_no_expiry"
	}

	msg.Subject(i18n.T(ctx, "otp_email_subject"))
	msg.SetBodyString(mail.TypeTextPlain, i18n.TData(ctx, bodyID, map[string]any{
		"Code":    code,
		"Minutes": int(s.expiry.Minutes()),
	}))
	return msg, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS on 465, STARTTLS elsewhere
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}
