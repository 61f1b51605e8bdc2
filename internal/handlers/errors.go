// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, code int, message string) error {
	return c.JSON(code, errorResponse{Error: message})
}

// ErrorHandler renders errors that escaped a handler as JSON.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		slog.Error("unhandled error", "error", err, "path", c.Request().URL.Path)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = jsonError(c, code, message)
	}
	if writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}
