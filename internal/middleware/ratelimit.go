// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// IdleTimeout is how long a client IP stays tracked after its last request.
const IdleTimeout = 10 * time.Minute

// PerMinute converts a per-minute budget into a rate.Limit. Zero or less
// means unlimited.
func PerMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

// RateLimit limits each client IP to perMinute requests, allowing bursts of
// up to burst requests. Denied requests get 429 with Retry-After set to the
// time until the next token.
func RateLimit(perMinute, burst int) echo.MiddlewareFunc {
	r := PerMinute(perMinute)
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      r,
		Burst:     max(burst, 1),
		ExpiresIn: IdleTimeout,
	})
	return rateLimit(store, retryAfter(r))
}

func rateLimit(store echomw.RateLimiterStore, retry string) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			slog.Warn("rate limiter could not identify client", "error", err)
			return c.JSON(http.StatusForbidden, map[string]string{"error": "client not identifiable"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if err != nil {
				slog.Error("rate limiter store failed", "error", err, "ip", identifier)
			}
			c.Response().Header().Set("Retry-After", retry)
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		},
	})
}

// retryAfter is the whole number of seconds until r refills one token.
func retryAfter(r rate.Limit) string {
	if r == rate.Inf || r <= 0 {
		return "1"
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/float64(r)))))
}
