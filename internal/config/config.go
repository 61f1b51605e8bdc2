// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// Delivery modes.
const (
	DeliveryHTTP = "http"
	DeliverySMTP = "smtp"
	DeliveryLog  = "log"
)

// DefaultRemoteURL hosts both the breach proxy and the code delivery endpoint.
const DefaultRemoteURL = "https://guardiadigitale.it"

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	TLS      TLSConfig
	OTP      OTPConfig
	Breach   BreachConfig
	Delivery DeliveryConfig
	SMTP     SMTPConfig
}

type TLSConfig struct {
	Mode     string // auto, acme, manual, off
	CertDir  string // ACME certificate cache
	Email    string // ACME email for Let's Encrypt
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in KB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// SlogLevel parses Level. An empty level is info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log-level %q", l.Level)
	}
	return level, nil
}

type DatabaseConfig struct {
	DSN string
}

type OTPConfig struct {
	Expiry    time.Duration // 0 disables expiry
	RateLimit int           // code requests per minute and client IP, 0 disables
	RateBurst int
}

type BreachConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

type DeliveryConfig struct {
	Mode    string // http, smtp, log
	BaseURL string
	Timeout time.Duration
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertDir:  cmd.String("tls-cert-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		OTP: OTPConfig{
			Expiry:    cmd.Duration("otp-expiry"),
			RateLimit: int(cmd.Int("otp-rate-limit")),
			RateBurst: int(cmd.Int("otp-rate-burst")),
		},
		Breach: BreachConfig{
			BaseURL:   cmd.String("breach-url"),
			Timeout:   cmd.Duration("breach-timeout"),
			UserAgent: cmd.String("breach-user-agent"),
		},
		Delivery: DeliveryConfig{
			Mode:    strings.ToLower(cmd.String("delivery-mode")),
			BaseURL: cmd.String("delivery-url"),
			Timeout: cmd.Duration("delivery-timeout"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	if cfg.Delivery.BaseURL == "" {
		cfg.Delivery.BaseURL = cfg.Breach.BaseURL
	}

	return cfg
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON, "":
	default:
		return fmt.Errorf("unknown log-format: %q", c.Log.Format)
	}

	switch c.Delivery.Mode {
	case DeliveryHTTP, DeliveryLog:
	case DeliverySMTP:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return fmt.Errorf("delivery mode smtp requires smtp-host and smtp-from")
		}
	default:
		return fmt.Errorf("unknown delivery mode: %q", c.Delivery.Mode)
	}

	if c.OTP.Expiry < 0 {
		return fmt.Errorf("otp-expiry must not be negative")
	}
	if c.OTP.RateLimit < 0 || c.OTP.RateBurst < 0 {
		return fmt.Errorf("otp rate limit and burst must not be negative")
	}
	if c.Breach.BaseURL == "" {
		return fmt.Errorf("breach-url is required")
	}
	return nil
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port
	mode := strings.ToLower(cfg.TLS.Mode)

	scheme := "http"
	if shouldUseTLS(mode, host) {
		scheme = "https"
	}

	// ACME always serves on 443
	if mode == "acme" {
		return fmt.Sprintf("https://%s", host)
	}

	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func shouldUseTLS(mode, host string) bool {
	switch mode {
	case "off":
		return false
	case "acme", "manual":
		return true
	default: // "auto" or empty
		return !IsLocalhost(host)
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL of the API",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   64,
			Usage:   "Maximum request body size in KB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   LogFormatText,
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/guardia.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, acme, manual, off)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for the ACME certificate cache",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_DIR"), toml.TOML("tls.cert_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_EMAIL"), toml.TOML("tls.email", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
		// OTP flags
		&cli.DurationFlag{
			Name:    "otp-expiry",
			Value:   10 * time.Minute,
			Usage:   "Lifetime of an issued code (0 disables expiry)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_EXPIRY"), toml.TOML("otp.expiry", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-rate-limit",
			Value:   5,
			Usage:   "Code requests per minute per client IP (0 disables)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_RATE_LIMIT"), toml.TOML("otp.rate_limit", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-rate-burst",
			Value:   3,
			Usage:   "Burst of code requests per client IP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_RATE_BURST"), toml.TOML("otp.rate_burst", configFile)),
		},
		// Breach lookup flags
		&cli.StringFlag{
			Name:    "breach-url",
			Value:   DefaultRemoteURL,
			Usage:   "Base URL of the breach lookup proxy",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BREACH_URL"), toml.TOML("breach.url", configFile)),
		},
		&cli.DurationFlag{
			Name:    "breach-timeout",
			Value:   15 * time.Second,
			Usage:   "Timeout of a single breach lookup",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BREACH_TIMEOUT"), toml.TOML("breach.timeout", configFile)),
		},
		&cli.StringFlag{
			Name:    "breach-user-agent",
			Value:   "guardia-monitor",
			Usage:   "User-Agent sent to the breach lookup proxy",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BREACH_USER_AGENT"), toml.TOML("breach.user_agent", configFile)),
		},
		// Delivery flags
		&cli.StringFlag{
			Name:    "delivery-mode",
			Value:   DeliveryHTTP,
			Usage:   "How codes are delivered (http, smtp, log)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DELIVERY_MODE"), toml.TOML("delivery.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "delivery-url",
			Usage:   "Base URL of the code delivery endpoint (defaults to breach-url)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DELIVERY_URL"), toml.TOML("delivery.url", configFile)),
		},
		&cli.DurationFlag{
			Name:    "delivery-timeout",
			Value:   15 * time.Second,
			Usage:   "Timeout of a single code delivery",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DELIVERY_TIMEOUT"), toml.TOML("delivery.timeout", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address of code emails",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Guardia Monitor",
			Usage:   "Sender name of code emails",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP (implicit on port 465, STARTTLS otherwise)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
	}
}
