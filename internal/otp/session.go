// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp owns the email verification challenge of the device: the
// address being verified, the last issued code and whether it was confirmed.
package otp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StorageKey is the store key holding the serialized session.
const StorageKey = "@otp_data"

var (
	// ErrNoSession is returned when an operation needs an issued code.
	ErrNoSession = errors.New("otp: no code has been issued")
	// ErrEmptyEmail is returned when issuing a code without an address.
	ErrEmptyEmail = errors.New("otp: email is required")
	// ErrEmptyCode is returned when issuing an empty code.
	ErrEmptyCode = errors.New("otp: code is required")
	// ErrCorruptRecord is returned when the persisted record cannot be used.
	ErrCorruptRecord = errors.New("otp: corrupt session record")
	// ErrSuperseded is returned when a later issue request or a clear was
	// already applied.
	ErrSuperseded = errors.New("otp: superseded by a later request")
)

// Session is a snapshot of the verification challenge. The zero value is the
// empty session.
type Session struct { //nolint:govet // fieldalignment: readability over optimization
	Email     string
	Code      string
	Verified  bool
	ExpiresAt time.Time // zero when expiry is disabled
}

// IsEmpty reports whether no challenge exists.
func (s Session) IsEmpty() bool {
	return s.Email == "" && s.Code == ""
}

// Pending reports whether a code was issued and is still unconfirmed.
func (s Session) Pending() bool {
	return s.Code != "" && !s.Verified
}

// IsExpired reports whether the code expired at now.
func (s Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// record is the persisted JSON shape.
type record struct {
	OTP        string `json:"otp"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
	ExpiresAt  int64  `json:"expiresAt,omitempty"` // Unix milliseconds
}

func encode(s Session) (string, error) {
	rec := record{
		OTP:        s.Code,
		Email:      s.Email,
		IsVerified: s.Verified,
	}
	if !s.ExpiresAt.IsZero() {
		rec.ExpiresAt = s.ExpiresAt.UnixMilli()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	return string(data), nil
}

func decode(raw string) (Session, error) {
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if rec.OTP != "" && rec.Email == "" {
		return Session{}, fmt.Errorf("%w: code without email", ErrCorruptRecord)
	}
	if rec.IsVerified && rec.OTP == "" {
		return Session{}, fmt.Errorf("%w: verified without code", ErrCorruptRecord)
	}

	s := Session{
		Email:    rec.Email,
		Code:     rec.OTP,
		Verified: rec.IsVerified,
	}
	if rec.ExpiresAt > 0 {
		s.ExpiresAt = time.UnixMilli(rec.ExpiresAt)
	}
	return s, nil
}
