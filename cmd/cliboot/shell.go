// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cliboot/cliboot/internal/boot"
	"github.com/cliboot/cliboot/internal/config"
	"github.com/cliboot/cliboot/internal/history"
	"github.com/cliboot/cliboot/internal/shell"
)

func newShellCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, app)
		},
	}
}

// runShell bootstraps the registry and runs the loop on the command's
// streams. The exit command ends the loop with its code instead of exiting
// the process, so deferred cleanup still runs.
func runShell(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return fail(cmd, app, err)
	}
	logger := installLogger(cmd.ErrOrStderr(), cfg.Log.Level)

	store := openHistoryOrWarn(cfg, logger)
	defer closeHistory(store, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	exitCode := -1
	bootApp, opts := app.bootOptions(cfg, logger)
	opts.Stdin = cmd.InOrStdin()
	opts.Stdout = cmd.OutOrStdout()
	opts.Stderr = cmd.ErrOrStderr()
	opts.History = historyOf(store)
	opts.Terminate = func(code int) {
		exitCode = code
		cancel()
	}

	err = boot.Run(ctx, bootApp, opts)
	switch {
	case exitCode > 0:
		return &ExitError{Code: exitCode}
	case exitCode == 0:
		return nil
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled) && cmd.Context().Err() != nil:
		// Interrupted by a signal.
		return nil
	default:
		return fail(cmd, app, err)
	}
}

// openHistoryOrWarn opens the history store. A store that cannot be opened
// only disables history.
func openHistoryOrWarn(cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := openHistory(cfg)
	if err != nil {
		logger.Warn("continuing without history", "error", err)
		return nil
	}
	return store
}

func closeHistory(store *history.Store, logger *slog.Logger) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		logger.Warn("failed to close history", "path", store.Path(), "error", err)
	}
}

// historyOf keeps a nil store from becoming a non-nil interface.
func historyOf(store *history.Store) shell.History {
	if store == nil {
		return nil
	}
	return store
}
