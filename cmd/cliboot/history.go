// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the lines entered in previous sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return errors.New("--limit must not be negative")
			}
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return fail(cmd, app, err)
			}

			store, err := openHistory(cfg)
			if err != nil {
				return fail(cmd, app, err)
			}
			if store == nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), stylesFor(cmd.ErrOrStderr()).Subtitle.Render("history is disabled"))
				return nil
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Last(limit)
			if err != nil {
				return fail(cmd, app, fmt.Errorf("%w: %w", errHistory, err))
			}
			for _, e := range entries {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%5d  %s\n", e.Seq, e.Text); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of most recent lines to print (0 prints all)")
	return cmd
}
