// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/unirex/guardia-monitor/internal/otp"
	"codeberg.org/unirex/guardia-monitor/internal/sse"
	"codeberg.org/unirex/guardia-monitor/internal/validate"
	"github.com/labstack/echo/v4"
)

// SessionEvent is the SSE event name carrying session snapshots.
const SessionEvent = "session"

// HeartbeatInterval keeps idle event streams open through proxies.
var HeartbeatInterval = 30 * time.Second

// SessionHandlers expose the verification session.
type SessionHandlers struct {
	sessions *otp.Manager
	hub      *sse.Hub
}

// NewSession creates a new SessionHandlers instance and forwards every
// session change to the streams connected to hub.
func NewSession(sessions *otp.Manager, hub *sse.Hub) *SessionHandlers {
	h := &SessionHandlers{sessions: sessions, hub: hub}
	sessions.Subscribe(h.publish)
	return h
}

func (h *SessionHandlers) publish(s otp.Session) {
	msg, err := sse.FormatJSONEvent(SessionEvent, NewSessionView(s, h.sessions.Now()))
	if err != nil {
		slog.Error("failed to encode session event", "error", err)
		return
	}
	h.hub.Broadcast(msg)
}

// Show returns the current session.
func (h *SessionHandlers) Show(c echo.Context) error {
	return c.JSON(http.StatusOK, NewSessionView(h.sessions.Session(), h.sessions.Now()))
}

// SetVerified sets the verified flag directly.
func (h *SessionHandlers) SetVerified(c echo.Context) error {
	var req validate.VerifiedRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.sessions.SetVerified(c.Request().Context(), *req.Verified); err != nil {
		if errors.Is(err, otp.ErrNoSession) {
			return jsonError(c, http.StatusConflict, "no code has been issued")
		}
		slog.Error("failed to store verification", "error", err)
		return jsonError(c, http.StatusInternalServerError, "failed to store session")
	}

	return c.JSON(http.StatusOK, NewSessionView(h.sessions.Session(), h.sessions.Now()))
}

// Clear drops the session.
func (h *SessionHandlers) Clear(c echo.Context) error {
	if err := h.sessions.ClearSession(c.Request().Context()); err != nil {
		slog.Error("failed to clear session", "error", err)
		return jsonError(c, http.StatusInternalServerError, "failed to clear session")
	}
	return c.NoContent(http.StatusNoContent)
}

// Events streams session snapshots as server-sent events, starting with the
// current one.
func (h *SessionHandlers) Events(c echo.Context) error {
	ctx := c.Request().Context()

	// Register before the snapshot so no change between the two is missed
	id, ch := h.hub.Register()
	defer h.hub.Unregister(id)

	initial, err := sse.FormatJSONEvent(SessionEvent, NewSessionView(h.sessions.Session(), h.sessions.Now()))
	if err != nil {
		return err
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(initial)); err != nil {
		return nil
	}
	w.Flush()

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil // Client disconnected
			}
			w.Flush()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(msg)); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
