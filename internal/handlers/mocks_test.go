// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"sync"

	"codeberg.org/unirex/guardia-monitor/internal/breach"
	"github.com/stretchr/testify/mock"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) Lookup(ctx context.Context, email string) ([]breach.Breach, error) {
	args := m.Called(ctx, email)
	breaches, _ := args.Get(0).([]breach.Breach)
	return breaches, args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

// gatedSender reports every delivery on entered and blocks deliveries to
// held addresses until their channel is closed.
type gatedSender struct {
	entered chan string
	held    map[string]chan struct{}
	mu      sync.Mutex
	codes   map[string]string
}

func newGatedSender() *gatedSender {
	return &gatedSender{
		entered: make(chan string, 8),
		held:    make(map[string]chan struct{}),
		codes:   make(map[string]string),
	}
}

func (s *gatedSender) hold(email string) chan struct{} {
	ch := make(chan struct{})
	s.held[email] = ch
	return ch
}

func (s *gatedSender) code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

func (s *gatedSender) Send(_ context.Context, email, code string) error {
	s.entered <- email
	if ch, ok := s.held[email]; ok {
		<-ch
	}
	s.mu.Lock()
	s.codes[email] = code
	s.mu.Unlock()
	return nil
}
