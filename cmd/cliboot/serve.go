// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cliboot/cliboot/internal/boot"
	"github.com/cliboot/cliboot/internal/sshserver"
)

func newServeCommand(app *App) *cobra.Command {
	var (
		host           string
		port           int
		hostKey        string
		authorizedKeys string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the shell over SSH",
		Long: `Serve the shell over SSH.

Plugins are discovered once; every SSH session then gets its own dispatch
loop over the shared commands. Commands from different sessions never run
at the same time. 'exit' ends only the session that runs it, and 'cd'
moves only that session's working directory.

Without --authorized-keys any client may log in, so the server only listens
on a loopback address. Any other --host requires --authorized-keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return fail(cmd, app, err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Serve.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Serve.Port = port
			}
			if hostKey != "" {
				cfg.Serve.HostKeyPath = hostKey
			}
			logger := installLogger(cmd.ErrOrStderr(), cfg.Log.Level)

			bootApp, opts := app.bootOptions(cfg, logger)
			reg, _, err := boot.Bootstrap(ctx, bootApp, opts)
			if err != nil {
				return fail(cmd, app, err)
			}

			keyPath, err := cfg.HostKeyPath()
			if err != nil {
				return fail(cmd, app, fmt.Errorf("%w: %w", errServe, err))
			}

			store := openHistoryOrWarn(cfg, logger)
			defer closeHistory(store, logger)

			srvCfg := sshserver.DefaultConfig()
			srvCfg.Host = cfg.Serve.Host
			srvCfg.Port = cfg.Serve.Port
			srvCfg.HostKeyPath = keyPath
			srvCfg.AuthorizedKeysPath = authorizedKeys
			srvCfg.Registry = reg
			srvCfg.History = historyOf(store)

			srvLogger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)
			srvLogger.SetPrefix("ssh-server")
			srv := sshserver.New(srvCfg)
			srv.SetLogger(srvLogger)

			if err := srv.Start(ctx); err != nil {
				return fail(cmd, app, fmt.Errorf("%w: %w", errServe, err))
			}
			st := stylesFor(cmd.OutOrStdout())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", st.Success.Render("Serving on"), st.Cmd.Render(srv.Address()))

			var runErr error
			select {
			case <-ctx.Done():
			case err, ok := <-srv.Err():
				if ok {
					runErr = err
				}
			}
			if err := srv.Stop(); err != nil {
				logger.Warn("SSH server did not shut down cleanly", "error", err)
			}
			if runErr != nil {
				return fail(cmd, app, fmt.Errorf("%w: %w", errServe, runErr))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", sshserver.DefaultHost, "address to listen on")
	cmd.Flags().IntVar(&port, "port", 2222, "port to listen on (0 picks a free port)")
	cmd.Flags().StringVar(&hostKey, "host-key", "", "host key file, generated when missing")
	cmd.Flags().StringVar(&authorizedKeys, "authorized-keys", "", "authorized_keys file restricting who may log in")
	return cmd
}
