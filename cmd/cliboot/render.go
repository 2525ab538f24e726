// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/cliboot/cliboot/internal/issue"
)

// fatalHeader opens every fatal error report.
const fatalHeader = "Error running application"

// fail reports err on the command's stderr and returns the ExitError that
// ends the process with status 1. On a terminal the matching issue page is
// rendered first.
func fail(cmd *cobra.Command, app *App, err error) error {
	w := cmd.ErrOrStderr()
	_, _ = fmt.Fprintln(w, stylesFor(w).Error.Render(fatalHeader))

	if id, ok := issueFor(err); ok && isTerminal(w) {
		if rendered, renderErr := issue.Get(id).Render("dark"); renderErr == nil {
			_, _ = fmt.Fprint(w, rendered)
		}
	}
	_, _ = fmt.Fprintln(w, formatErrorForDisplay(err, app.flags.verbose))

	return &ExitError{Code: 1, Err: err}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
