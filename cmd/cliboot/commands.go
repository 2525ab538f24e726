// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cliboot/cliboot/internal/boot"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

// commandListing is the structured output of `cliboot commands`.
type commandListing struct {
	Root     string   `json:"root" yaml:"root" toml:"root"`
	Source   string   `json:"source" yaml:"source" toml:"source"`
	Groups   []string `json:"groups" yaml:"groups" toml:"groups"`
	Commands []string `json:"commands" yaml:"commands" toml:"commands"`
}

func newCommandsCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List the commands discovered under the scan root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case formatText, formatJSON, formatYAML, formatTOML:
			default:
				return fmt.Errorf("unknown format %q: must be one of text, json, yaml or toml", format)
			}

			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return fail(cmd, app, err)
			}
			logger := installLogger(cmd.ErrOrStderr(), cfg.Log.Level)

			bootApp, opts := app.bootOptions(cfg, logger)
			reg, report, err := boot.Bootstrap(cmd.Context(), bootApp, opts)
			if err != nil {
				return fail(cmd, app, err)
			}

			listing := commandListing{
				Root:     report.Root,
				Source:   report.Source.String(),
				Groups:   append([]string{}, report.Groups...),
				Commands: reg.Names(),
			}
			return writeListing(cmd.OutOrStdout(), format, listing)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json, yaml or toml")
	return cmd
}

func writeListing(w io.Writer, format string, listing commandListing) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case formatJSON:
		data, err = json.MarshalIndent(listing, "", "  ")
		data = append(data, '\n')
	case formatYAML:
		data, err = yaml.Marshal(listing)
	case formatTOML:
		data, err = toml.Marshal(listing)
	default:
		for _, name := range listing.Commands {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return err
			}
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}
