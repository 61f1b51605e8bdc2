// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"

	"codeberg.org/unirex/guardia-monitor/internal/config"
	"codeberg.org/unirex/guardia-monitor/internal/middleware"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// eventsPath is streamed and must not be buffered by compression.
const eventsPath = "/api/session/events"

func setupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Secure())
	e.Use(echomw.GzipWithConfig(echomw.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == eventsPath
		},
	}))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dK", max(cfg.Server.MaxBodySize, 1))))
	e.Use(middleware.Locale())
}
