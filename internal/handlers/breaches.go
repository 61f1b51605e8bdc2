// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"codeberg.org/unirex/guardia-monitor/internal/breach"
	"codeberg.org/unirex/guardia-monitor/internal/otp"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// Lookup fetches the breaches of an email address.
type Lookup interface {
	Lookup(ctx context.Context, email string) ([]breach.Breach, error)
}

// BreachHandlers serve lookup results for the session email.
type BreachHandlers struct {
	sessions *otp.Manager
	lookup   Lookup
}

// NewBreach creates a new BreachHandlers instance.
func NewBreach(sessions *otp.Manager, lookup Lookup) *BreachHandlers {
	return &BreachHandlers{sessions: sessions, lookup: lookup}
}

// BreachListResponse is the full result screen.
type BreachListResponse struct {
	Email    string       `json:"email"`
	Message  string       `json:"message"`
	Breaches []BreachView `json:"breaches"`
	Summary  SummaryView  `json:"summary"`
}

// PreviewResponse is the preliminary result before verification.
type PreviewResponse struct {
	Email   string      `json:"email"`
	Message string      `json:"message"`
	Summary SummaryView `json:"summary"`
}

// List returns every breach of the verified email, newest first.
func (h *BreachHandlers) List(c echo.Context) error {
	email, ok := h.verifiedEmail()
	if !ok {
		return jsonError(c, http.StatusForbidden, "email not verified")
	}

	ctx := c.Request().Context()
	breaches, err := h.fetch(ctx, email)
	if err != nil {
		return jsonError(c, http.StatusBadGateway, "breach lookup failed")
	}

	return c.JSON(http.StatusOK, BreachListResponse{
		Email:   email,
		Message: resultMessage(ctx, email, len(breaches)),
		Breaches: lo.Map(breaches, func(b breach.Breach, _ int) BreachView {
			return newBreachView(ctx, b)
		}),
		Summary: newSummaryView(ctx, breach.Summarize(breaches)),
	})
}

// Detail returns one breach of the verified email by name.
func (h *BreachHandlers) Detail(c echo.Context) error {
	email, ok := h.verifiedEmail()
	if !ok {
		return jsonError(c, http.StatusForbidden, "email not verified")
	}

	ctx := c.Request().Context()
	breaches, err := h.fetch(ctx, email)
	if err != nil {
		return jsonError(c, http.StatusBadGateway, "breach lookup failed")
	}

	b, found := breach.Find(breaches, c.Param("name"))
	if !found {
		return jsonError(c, http.StatusNotFound, "breach not found")
	}

	return c.JSON(http.StatusOK, newBreachDetailView(ctx, b))
}

// Preview returns the tier summary of the session email without requiring
// verification. Individual breaches are withheld.
func (h *BreachHandlers) Preview(c echo.Context) error {
	email := h.sessions.Session().Email
	if email == "" {
		return jsonError(c, http.StatusConflict, "no email to scan")
	}

	ctx := c.Request().Context()
	breaches, err := h.fetch(ctx, email)
	if err != nil {
		return jsonError(c, http.StatusBadGateway, "breach lookup failed")
	}

	return c.JSON(http.StatusOK, PreviewResponse{
		Email:   email,
		Message: resultMessage(ctx, email, len(breaches)),
		Summary: newSummaryView(ctx, breach.Summarize(breaches)),
	})
}

func (h *BreachHandlers) verifiedEmail() (string, bool) {
	s := h.sessions.Session()
	if !s.Verified || s.Email == "" {
		return "", false
	}
	return s.Email, true
}

func (h *BreachHandlers) fetch(ctx context.Context, email string) ([]breach.Breach, error) {
	breaches, err := h.lookup.Lookup(ctx, email)
	if err != nil {
		slog.Warn("breach lookup failed", "error", err)
		return nil, err
	}
	return breach.SortByDate(breaches), nil
}
