// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"io"
	"log/slog"
	"os"
	"time"

	"codeberg.org/unirex/guardia-monitor/internal/config"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// newLogger builds the logger described by cfg, writing to w. The text
// format is colored only when w is a terminal.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	if cfg.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// setupLogger installs the logger for cfg as the slog default.
func setupLogger(w io.Writer, cfg config.LogConfig) {
	slog.SetDefault(newLogger(w, cfg))
}
