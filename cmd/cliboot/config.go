// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cliboot/cliboot/internal/config"
)

// newConfigCommand creates the `cliboot config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cliboot configuration",
		Long: `Manage cliboot configuration.

Configuration is stored in:
  - Linux: ~/.config/cliboot/config.cue
  - macOS: ~/Library/Application Support/cliboot/config.cue
  - Windows: %APPDATA%\cliboot\config.cue

Every key can also be set through a CLIBOOT_ environment variable, for
example CLIBOOT_SCAN_ROOT or CLIBOOT_LOG_LEVEL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return fail(cmd, app, err)
			}
			path, found, err := config.FilePath(app.loadOptions())
			if err != nil {
				return fail(cmd, app, fmt.Errorf("%w: %w", errConfigLoad, err))
			}

			st := stylesFor(cmd.OutOrStdout())
			source := st.Subtitle.Render("(using defaults)")
			if found {
				source = path
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s: %s\n\n", st.Cmd.Render("Config file"), source)
			_, err = fmt.Fprint(out, config.GenerateCUE(cfg))
			return err
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _, err := config.FilePath(app.loadOptions())
			if err != nil {
				return fail(cmd, app, fmt.Errorf("%w: %w", errConfigLoad, err))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _, err := config.FilePath(app.loadOptions())
			if err != nil {
				return fail(cmd, app, fmt.Errorf("%w: %w", errConfigLoad, err))
			}
			created, err := config.CreateDefaultConfig(path)
			if err != nil {
				return fail(cmd, app, fmt.Errorf("%w: %w", errConfigLoad, err))
			}

			st := stylesFor(cmd.OutOrStdout())
			if created {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", st.Success.Render("✓"), path)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at %s\n", path)
			}
			return nil
		},
	})

	return cfgCmd
}
