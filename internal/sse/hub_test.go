// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	id1, ch1 := hub.Register()
	id2, _ := hub.Register()
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, hub.ClientCount())

	hub.Unregister(id1)
	assert.Equal(t, 1, hub.ClientCount())

	_, ok := <-ch1
	assert.False(t, ok, "channel should be closed")

	hub.Unregister(id1)
	hub.Unregister(id2)
	assert.Zero(t, hub.ClientCount())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()

	id1, ch1 := hub.Register()
	id2, ch2 := hub.Register()
	defer hub.Unregister(id1)
	defer hub.Unregister(id2)

	hub.Broadcast("hello")

	for _, ch := range []chan string{ch1, ch2} {
		select {
		case msg := <-ch:
			assert.Equal(t, "hello", msg)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("expected message")
		}
	}
}

func TestHub_BroadcastSkipsFullChannel(t *testing.T) {
	hub := NewHub()
	id, ch := hub.Register()
	defer hub.Unregister(id)

	for range 15 {
		hub.Broadcast("msg")
	}

	assert.Len(t, ch, 10)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	_, ch := hub.Register()

	hub.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, hub.ClientCount())

	id, late := hub.Register()
	_, ok = <-late
	assert.False(t, ok, "streams registered after Close start closed")
	hub.Unregister(id)
	hub.Broadcast("ignored")
}

func TestHub_Concurrent(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := hub.Register()
			hub.Broadcast("ping")
			hub.Unregister(id)
		}()
	}
	wg.Wait()

	require.Zero(t, hub.ClientCount())
}
