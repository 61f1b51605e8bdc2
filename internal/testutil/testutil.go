// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"io"
	"net/http/httptest"
	"testing"

	"codeberg.org/unirex/guardia-monitor/internal/breach"
	"codeberg.org/unirex/guardia-monitor/internal/database"
	"codeberg.org/unirex/guardia-monitor/internal/otp"
	"codeberg.org/unirex/guardia-monitor/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestManager creates a session manager persisting to a fresh in-memory
// database.
func NewTestManager(t *testing.T, opts ...otp.Option) (*otp.Manager, *repository.Repository) {
	t.Helper()
	_, repo := NewTestDB(t)
	return otp.NewManager(repo, opts...), repo
}

// Breaches returns one breach per severity tier, oldest first.
func Breaches() []breach.Breach {
	return []breach.Breach{
		{
			Name:        "Ashley",
			Title:       "Ashley Madison",
			Domain:      "ashleymadison.com",
			BreachDate:  "2015-07-19",
			PwnCount:    30_811_934,
			LogoPath:    "https://logos.haveibeenpwned.com/AshleyMadison.png",
			DataClasses: []string{"Email addresses", "Passwords", "Sexual preferences"},
			IsVerified:  true,
			IsSensitive: true,
		},
		{
			Name:        "Adobe",
			Title:       "Adobe",
			Domain:      "adobe.com",
			BreachDate:  "2016-10-04",
			PwnCount:    152_445_165,
			LogoPath:    "https://logos.haveibeenpwned.com/Adobe.png",
			DataClasses: []string{"Email addresses", "Password hints", "Passwords", "Usernames"},
			IsVerified:  true,
		},
		{
			Name:        "Canva",
			Title:       "Canva",
			Domain:      "canva.com",
			BreachDate:  "2019-05-24",
			PwnCount:    137_272_116,
			DataClasses: []string{"Email addresses", "Geographic locations", "Names", "Usernames"},
			IsVerified:  true,
		},
		{
			Name:        "Stealer",
			Title:       "Stealer Logs",
			BreachDate:  "2021-03-01",
			PwnCount:    2_300,
			LogoPath:    breach.PlaceholderLogo,
			DataClasses: []string{"Email addresses", "Names"},
			IsMalware:   true,
		},
		{
			Name:        "Spam",
			Title:       "Spam List",
			Domain:      "spam.example",
			BreachDate:  "2023-11-11",
			PwnCount:    999,
			DataClasses: []string{"Email addresses"},
		},
	}
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewEchoContextWithHeaders creates an Echo context with custom headers.
func NewEchoContextWithHeaders(e *echo.Echo, method, path string, body io.Reader, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
