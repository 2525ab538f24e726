// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"

	"github.com/cliboot/cliboot/internal/config"
)

// newLogger returns a charm logger writing to w at level. The level has
// already been validated by config.
func newLogger(w io.Writer, level config.LogLevel) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: config.AppName})
	lvl, err := log.ParseLevel(string(level))
	if err != nil {
		lvl = log.WarnLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// installLogger makes a charm logger on w the process-wide slog handler and
// returns the slog front end for it.
func installLogger(w io.Writer, level config.LogLevel) *slog.Logger {
	logger := slog.New(newLogger(w, level))
	slog.SetDefault(logger)
	return logger
}
