// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	// Bundled plugins declare their types in the process catalog.
	_ "github.com/cliboot/cliboot/internal/plugins/sys"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the cliboot command tree around app. Without a
// subcommand it runs the interactive shell.
func NewRootCommand(app *App) *cobra.Command {
	st := stylesFor(os.Stdout)
	rootCmd := &cobra.Command{
		Use:   "cliboot",
		Short: "Bootstrap an interactive shell from discovered command plugins",
		Long: st.Title.Render("cliboot") + st.Subtitle.Render(" - an interactive shell built from plugins") + `

cliboot scans a directory tree or a zip archive for plugin units, registers
every command the plugins declare and then reads commands from standard
input until it ends or 'exit' runs.

Units are '.unit' files naming a plugin compiled into the binary, or '.lua'
scripts returning a command group. The scan root defaults to the directory
holding the cliboot executable.

` + st.Subtitle.Render("Examples:") + `
  cliboot                         Start the shell
  cliboot --root ./plugins.zip    Start the shell from an archive
  cliboot commands --format json  List the discovered commands
  cliboot serve --port 2222       Serve the shell over SSH`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, app)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.flags.root, "root", "", "directory or zip archive to scan (default is the executable's directory)")
	flags.BoolVar(&app.flags.noCore, "no-core", false, "do not register the clear and exit commands")
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/cliboot/config.cue)")
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newShellCommand(app),
		newCommandsCommand(app),
		newServeCommand(app),
		newHistoryCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the command tree on the process arguments and exits with the
// resulting status. This is called by main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// errorHandler prints errors cobra raised itself. An ExitError has already
// been reported by the failing command.
func errorHandler(w io.Writer, st fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, st, err)
}
