// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Hub fans events out to every connected stream. Each stream is identified
// by a random connection ID.
type Hub struct {
	clients map[string]chan string
	closed  bool
	mu      sync.RWMutex
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]chan string)}
}

// Register adds a stream and returns its ID and the channel to receive
// events on. After Close the returned channel is already closed.
func (h *Hub) Register() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, 10) // buffered to prevent blocking

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return id, ch
	}
	h.clients[id] = ch
	return id, ch
}

// Unregister removes a stream and closes its channel. Unknown IDs are
// ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
}

// Broadcast sends a message to all connected streams. Streams with a full
// buffer miss the message.
func (h *Hub) Broadcast(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- message:
		default:
		}
	}
}

// Close disconnects every stream and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range lo.Keys(h.clients) {
		close(h.clients[id])
		delete(h.clients, id)
	}
	h.closed = true
}

// ClientCount returns the number of connected streams.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
