// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/unirex/guardia-monitor/internal/handlers"
	"codeberg.org/unirex/guardia-monitor/internal/i18n"
	"codeberg.org/unirex/guardia-monitor/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = i18n.Init()
}

func TestHealth(t *testing.T) {
	h := handlers.New(nil)

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)

	err := h.Health(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_WithStore(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	h := handlers.New(repo)

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth_StoreDown(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	require.NoError(t, db.Close())
	h := handlers.New(repo)

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		method   string
		code     int
		expected string
	}{
		{"http error", echo.NewHTTPError(http.StatusNotFound, "route not found"), http.MethodGet, http.StatusNotFound, `{"error":"route not found"}`},
		{"default message", echo.ErrMethodNotAllowed, http.MethodGet, http.StatusMethodNotAllowed, `{"error":"Method Not Allowed"}`},
		{"plain error", errors.New("boom"), http.MethodGet, http.StatusInternalServerError, `{"error":"Internal Server Error"}`},
		{"head request", echo.ErrNotFound, http.MethodHead, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(tt.method, "/missing", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handlers.ErrorHandler(tt.err, c)

			assert.Equal(t, tt.code, rec.Code)
			if tt.expected == "" {
				assert.Empty(t, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.expected, rec.Body.String())
			}
		})
	}
}
