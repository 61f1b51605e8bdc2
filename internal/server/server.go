// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/unirex/guardia-monitor/internal/config"
	"codeberg.org/unirex/guardia-monitor/internal/database"
	"codeberg.org/unirex/guardia-monitor/internal/handlers"
	"codeberg.org/unirex/guardia-monitor/internal/i18n"
	"codeberg.org/unirex/guardia-monitor/internal/middleware"
	"codeberg.org/unirex/guardia-monitor/internal/otp"
	"codeberg.org/unirex/guardia-monitor/internal/repository"
	"codeberg.org/unirex/guardia-monitor/internal/services/delivery"
	"codeberg.org/unirex/guardia-monitor/internal/services/lookup"
	"codeberg.org/unirex/guardia-monitor/internal/sse"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// App holds the services behind the routes.
type App struct {
	Repo     *repository.Repository
	Sessions *otp.Manager
	Sender   delivery.Sender
	Lookup   handlers.Lookup
	Hub      *sse.Hub
	Limiter  echo.MiddlewareFunc // nil when rate limiting is disabled
}

// NewApp wires the services from cfg and restores the persisted session.
func NewApp(ctx context.Context, cfg *config.Config, repo *repository.Repository) (*App, error) {
	sessions := otp.NewManager(repo, otp.WithExpiry(cfg.OTP.Expiry))
	if err := sessions.LoadSession(ctx); err != nil {
		if !errors.Is(err, otp.ErrCorruptRecord) {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		slog.Warn("discarding unreadable session record", "error", err)
		if clearErr := sessions.ClearSession(ctx); clearErr != nil {
			return nil, fmt.Errorf("failed to reset session: %w", clearErr)
		}
	}

	sender, err := delivery.New(cfg, cfg.OTP.Expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up code delivery: %w", err)
	}

	app := &App{
		Repo:     repo,
		Sessions: sessions,
		Sender:   sender,
		Lookup:   newLookupClient(cfg),
		Hub:      sse.NewHub(),
	}
	if cfg.OTP.RateLimit > 0 {
		app.Limiter = middleware.RateLimit(cfg.OTP.RateLimit, cfg.OTP.RateBurst)
	}
	return app, nil
}

func newLookupClient(cfg *config.Config) *lookup.Client {
	return lookup.NewClient(cfg.Breach.BaseURL,
		lookup.WithTimeout(cfg.Breach.Timeout),
		lookup.WithUserAgent(cfg.Breach.UserAgent),
	)
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(os.Stdout, cfg.Log)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"delivery", cfg.Delivery.Mode,
		"otp_expiry", cfg.OTP.Expiry,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := database.Close(db); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	app, err := NewApp(ctx, cfg, repository.New(db))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return startWithGracefulShutdown(ctx, NewEcho(cfg, app), cfg, app.Hub)
}

// NewEcho builds the HTTP API.
func NewEcho(cfg *config.Config, app *App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg)
	setupRoutes(e, app)
	return e
}

func setupRoutes(e *echo.Echo, app *App) {
	h := handlers.New(app.Repo)
	sessions := handlers.NewSession(app.Sessions, app.Hub)
	codes := handlers.NewOTP(app.Sessions, app.Sender)
	breaches := handlers.NewBreach(app.Sessions, app.Lookup)

	var limited []echo.MiddlewareFunc
	if app.Limiter != nil {
		limited = append(limited, app.Limiter)
	}

	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.GET("/session", sessions.Show)
	api.DELETE("/session", sessions.Clear)
	api.PUT("/session/verified", sessions.SetVerified)
	api.GET("/session/events", sessions.Events)
	api.POST("/otp", codes.Issue, limited...)
	api.POST("/otp/verify", codes.Verify, limited...)
	api.GET("/breaches", breaches.List)
	api.GET("/breaches/:name", breaches.Detail)
	api.GET("/preview", breaches.Preview)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config, hub *sse.Hub) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP→HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Event streams never end on their own
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.TLSServer.Serve(e.TLSListener)
}
