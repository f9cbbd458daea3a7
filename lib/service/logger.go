// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NewLogger creates the standard service logger: a JSON handler
// writing to w at the named level ("debug", "info", "warn", "error";
// empty means info).
// It also becomes the default slog logger so library code using
// slog.Info and friends shares the handler.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var parsed slog.Level
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parsed}))
	slog.SetDefault(logger)
	return logger, nil
}
