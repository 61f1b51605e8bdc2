// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/unirex/guardia-monitor/internal/otp"
	"codeberg.org/unirex/guardia-monitor/internal/services/delivery"
	"codeberg.org/unirex/guardia-monitor/internal/validate"
	"github.com/labstack/echo/v4"
)

// OTPHandlers issue and verify codes.
type OTPHandlers struct {
	sessions *otp.Manager
	sender   delivery.Sender
	generate func() (string, error)
}

// NewOTP creates a new OTPHandlers instance.
func NewOTP(sessions *otp.Manager, sender delivery.Sender) *OTPHandlers {
	return &OTPHandlers{
		sessions: sessions,
		sender:   sender,
		generate: otp.GenerateCode,
	}
}

// Issue generates a code, delivers it and records it as the pending
// challenge. A failed delivery leaves the previous session untouched. When
// requests overlap, the one that arrived last wins.
func (h *OTPHandlers) Issue(c echo.Context) error {
	var req validate.IssueRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	ticket := h.sessions.Reserve()

	code, err := h.generate()
	if err != nil {
		slog.Error("failed to generate code", "error", err)
		return jsonError(c, http.StatusInternalServerError, "failed to generate code")
	}

	if err := h.sender.Send(ctx, req.Email, code); err != nil {
		slog.Warn("code delivery failed", "error", err, "email", req.Email)
		return jsonError(c, http.StatusBadGateway, "code delivery failed")
	}

	if err := h.sessions.IssueCodeAt(ctx, ticket, req.Email, code); err != nil {
		if errors.Is(err, otp.ErrSuperseded) {
			slog.Info("discarding code of superseded request", "email", req.Email)
			return jsonError(c, http.StatusConflict, "superseded by a later request")
		}
		slog.Error("failed to store session", "error", err)
		return jsonError(c, http.StatusInternalServerError, "failed to store session")
	}

	return c.JSON(http.StatusOK, NewSessionView(h.sessions.Session(), h.sessions.Now()))
}

// Verify checks a submitted code against the pending challenge.
func (h *OTPHandlers) Verify(c echo.Context) error {
	var req validate.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}
	req.Code = strings.TrimSpace(req.Code)
	if err := validate.Struct(req); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	s := h.sessions.Session()
	if s.Code == "" {
		return jsonError(c, http.StatusConflict, "no code pending")
	}

	ok, err := h.sessions.VerifyCode(c.Request().Context(), req.Code)
	if err != nil {
		slog.Error("failed to store verification", "error", err)
		return jsonError(c, http.StatusInternalServerError, "failed to store session")
	}
	if !ok {
		if s.IsExpired(h.sessions.Now()) {
			return jsonError(c, http.StatusUnauthorized, "code expired")
		}
		return jsonError(c, http.StatusUnauthorized, "invalid code")
	}

	return c.JSON(http.StatusOK, NewSessionView(h.sessions.Session(), h.sessions.Now()))
}
