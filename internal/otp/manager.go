// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultExpiry is how long an issued code stays valid.
const DefaultExpiry = 10 * time.Minute

// Store is the durable string store the session is written through to.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithExpiry sets how long issued codes stay valid. Zero disables expiry.
func WithExpiry(d time.Duration) Option {
	return func(m *Manager) {
		m.expiry = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Ticket is the arrival order of an issue request.
type Ticket uint64

// Manager is the single owner of the verification session. All operations
// are serialized, store I/O included, and every mutation is persisted before
// the in-memory state changes.
type Manager struct {
	store     Store
	now       func() time.Time
	listeners []func(Session)
	session   Session
	expiry    time.Duration
	tickets   atomic.Uint64
	applied   Ticket // guarded by mu
	mu        sync.Mutex
}

// NewManager creates a manager with an empty session. Call LoadSession to
// restore a persisted one.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		now:    time.Now,
		expiry: DefaultExpiry,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Expiry returns the configured code lifetime, zero when disabled.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Now returns the current time of the manager's clock.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Subscribe registers fn to receive the new session after every successful
// mutation, in mutation order. fn runs while the manager is locked and must
// not call back into it.
func (m *Manager) Subscribe(fn func(Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// LoadSession restores the session from the store. A missing record yields
// the empty session.
func (m *Manager) LoadSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, found, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if !found {
		m.session = Session{}
		return nil
	}

	s, err := decode(raw)
	if err != nil {
		return err
	}
	m.session = s
	return nil
}

// Reserve stamps an issue request when it arrives. Requests that deliver
// their code before issuing it pass the ticket to IssueCodeAt, so a slow
// delivery cannot overwrite a later request.
func (m *Manager) Reserve() Ticket {
	return Ticket(m.tickets.Add(1))
}

// IssueCode replaces any previous session with a fresh unverified challenge
// for email.
func (m *Manager) IssueCode(ctx context.Context, email, code string) error {
	return m.IssueCodeAt(ctx, m.Reserve(), email, code)
}

// IssueCodeAt is IssueCode for the request reserved as t. It returns
// ErrSuperseded when a request reserved after t was already issued or the
// session was cleared after t was reserved.
func (m *Manager) IssueCodeAt(ctx context.Context, t Ticket, email, code string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if code == "" {
		return ErrEmptyCode
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t <= m.applied {
		return ErrSuperseded
	}

	next := Session{Email: email, Code: code}
	if m.expiry > 0 {
		next.ExpiresAt = m.now().Add(m.expiry)
	}
	if err := m.commit(ctx, next); err != nil {
		return err
	}
	m.applied = t
	return nil
}

// VerifyCode reports whether submitted matches the stored, unexpired code.
// A match marks the session verified. A mismatch returns false with a nil
// error and leaves the session unchanged.
func (m *Manager) VerifyCode(ctx context.Context, submitted string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	if s.Code == "" || s.IsExpired(m.now()) {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(s.Code), []byte(submitted)) != 1 {
		return false, nil
	}
	if s.Verified {
		return true, nil
	}

	s.Verified = true
	if err := m.commit(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}

// SetVerified sets the verified flag directly, after a confirmation that
// happened outside VerifyCode.
func (m *Manager) SetVerified(ctx context.Context, status bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	if s.Code == "" {
		if status {
			return ErrNoSession
		}
		return nil
	}
	if s.Verified == status {
		return nil
	}

	s.Verified = status
	return m.commit(ctx, s)
}

// ClearSession erases the persisted record and resets the session. Issue
// requests reserved before the call are superseded.
func (m *Manager) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	m.applied = m.Reserve()
	m.session = Session{}
	m.notify()
	return nil
}

// commit persists next and then makes it current. Callers hold mu.
func (m *Manager) commit(ctx context.Context, next Session) error {
	raw, err := encode(next)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	m.session = next
	m.notify()
	return nil
}

func (m *Manager) notify() {
	for _, fn := range m.listeners {
		fn(m.session)
	}
}
