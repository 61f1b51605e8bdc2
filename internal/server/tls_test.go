// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"crypto/tls"
	"path/filepath"
	"testing"

	"codeberg.org/unirex/guardia-monitor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTLSMode(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		tls      config.TLSConfig
		expected TLSMode
	}{
		{"explicit off", "example.com", config.TLSConfig{Mode: "off"}, TLSModeOff},
		{"explicit acme", "localhost", config.TLSConfig{Mode: "ACME"}, TLSModeACME},
		{"explicit manual", "localhost", config.TLSConfig{Mode: "manual"}, TLSModeManual},
		{"auto localhost", "localhost", config.TLSConfig{Mode: "auto", Email: "a@b.com"}, TLSModeOff},
		{"auto with cert files", "example.com", config.TLSConfig{Mode: "auto", CertFile: "c.pem", KeyFile: "k.pem"}, TLSModeManual},
		{"auto public host with email", "example.com", config.TLSConfig{Email: "a@b.com"}, TLSModeACME},
		{"auto ip with email", "203.0.113.7", config.TLSConfig{Email: "a@b.com"}, TLSModeOff},
		{"auto public host without email", "example.com", config.TLSConfig{}, TLSModeOff},
		{"unknown falls back to auto", "localhost", config.TLSConfig{Mode: "selfsigned"}, TLSModeOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Server: config.ServerConfig{Host: tt.host},
				TLS:    tt.tls,
			}
			assert.Equal(t, tt.expected, resolveTLSMode(cfg))
		})
	}
}

func TestSetupTLS_Off(t *testing.T) {
	result, err := SetupTLS(&config.Config{Server: config.ServerConfig{Host: "localhost"}})
	require.NoError(t, err)
	assert.Equal(t, TLSModeOff, result.Mode)
	assert.Nil(t, result.TLSConfig)
}

func TestSetupTLS_ACMERequiresEmail(t *testing.T) {
	_, err := SetupTLS(&config.Config{
		Server: config.ServerConfig{Host: "example.com", Port: 443},
		TLS:    config.TLSConfig{Mode: "acme"},
	})
	assert.Error(t, err)
}

func TestSetupTLS_ACME(t *testing.T) {
	dir := t.TempDir()
	result, err := SetupTLS(&config.Config{
		Server: config.ServerConfig{Host: "example.com", Port: 443},
		TLS:    config.TLSConfig{Mode: "acme", Email: "ops@example.com", CertDir: dir},
	})
	require.NoError(t, err)

	assert.Equal(t, TLSModeACME, result.Mode)
	require.NotNil(t, result.TLSConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), result.TLSConfig.MinVersion)
	assert.NotNil(t, result.CertManager)
	assert.NotNil(t, result.HTTPHandler)
	assert.DirExists(t, filepath.Join(dir, "acme"))
}

func TestSetupTLS_ManualErrors(t *testing.T) {
	_, err := SetupTLS(&config.Config{TLS: config.TLSConfig{Mode: "manual"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cert-file and key-file")

	_, err = SetupTLS(&config.Config{TLS: config.TLSConfig{
		Mode:     "manual",
		CertFile: filepath.Join(t.TempDir(), "missing.pem"),
		KeyFile:  filepath.Join(t.TempDir(), "missing.key"),
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load certificate")
}

func TestFingerprint(t *testing.T) {
	assert.Empty(t, fingerprint(&tls.Certificate{}))

	fp := fingerprint(&tls.Certificate{Certificate: [][]byte{[]byte("leaf")}})
	assert.Len(t, fp, 32*3-1)
	assert.Regexp(t, `^([0-9A-F]{2}:){31}[0-9A-F]{2}$`, fp)
}
