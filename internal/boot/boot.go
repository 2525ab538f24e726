// SPDX-License-Identifier: MPL-2.0

// Package boot wires the pieces of a bootable command-line application:
// it builds the registry, registers the core commands, scans the plugin
// root and hands the result to the dispatch loop.
package boot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cliboot/cliboot/internal/activation"
	"github.com/cliboot/cliboot/internal/builtin"
	"github.com/cliboot/cliboot/internal/discovery"
	"github.com/cliboot/cliboot/internal/issue"
	"github.com/cliboot/cliboot/internal/registry"
	"github.com/cliboot/cliboot/internal/shell"
)

type (
	// Application marks a program as bootable and carries its settings.
	Application struct {
		// Name identifies the application in logs and messages.
		Name string
		// CoreCommands registers clear and exit before plugins are scanned.
		CoreCommands bool
	}

	// Options configure a single bootstrap.
	Options struct {
		// Root is the directory or zip archive to scan. Empty means
		// ExecutableRoot().
		Root string
		// Extensions overrides discovery.DefaultExtensions.
		Extensions []string
		// Activator resolves units. Nil means activation.Default over the
		// process catalog.
		Activator discovery.Activator

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer

		// History records entered lines. Nil disables history.
		History shell.History
		// Terminate ends the session when exit runs. Nil exits the process.
		Terminate func(code int)
		// Logger receives bootstrap diagnostics. Nil uses slog.Default().
		Logger *slog.Logger
	}
)

// DefaultApplication returns the application descriptor used by the cliboot
// binary.
func DefaultApplication() Application {
	return Application{Name: "cliboot", CoreCommands: true}
}

// ExecutableRoot returns the directory holding the running executable, with
// symbolic links resolved.
func ExecutableRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return filepath.Dir(resolved), nil
}

// Bootstrap builds the command registry: core commands first when enabled,
// then every command found under the scan root. Any failure is fatal and
// returned as an *issue.ActionableError.
func Bootstrap(ctx context.Context, app Application, opts Options) (*registry.Registry, *discovery.Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New()
	if app.CoreCommands {
		if err := builtin.Register(reg); err != nil {
			return nil, nil, wrapFatal(err, "register core commands", "")
		}
	}

	root := opts.Root
	if root == "" {
		exeRoot, err := ExecutableRoot()
		if err != nil {
			return nil, nil, wrapFatal(err, "derive scan root", "")
		}
		root = exeRoot
	}

	act := opts.Activator
	if act == nil {
		act = activation.Default(nil)
	}

	var scanOpts []discovery.Option
	if len(opts.Extensions) > 0 {
		scanOpts = append(scanOpts, discovery.WithExtensions(opts.Extensions...))
	}
	scanner := discovery.New(act, reg, scanOpts...)

	logger.Debug("scanning plugins", "app", app.Name, "root", root, "extensions", scanner.Extensions())
	scanErr := scanner.Scan(ctx, root)
	report := scanner.Report()
	if scanErr != nil {
		return nil, &report, wrapFatal(scanErr, "scan plugins", root)
	}

	for _, d := range report.Diagnostics {
		if d.Severity == discovery.SeverityWarning {
			logger.Warn(d.Message, "path", d.Path, "error", d.Cause)
		}
	}
	logger.Debug("bootstrap complete",
		"source", report.Source.String(),
		"units", report.Units,
		"groups", len(report.Groups),
		"commands", reg.Len())

	return reg, &report, nil
}

// Run bootstraps app and runs the dispatch loop on the option streams until
// the input ends. The loop is never entered when bootstrap fails.
func Run(ctx context.Context, app Application, opts Options) error {
	reg, _, err := Bootstrap(ctx, app, opts)
	if err != nil {
		return err
	}

	loop := &shell.Loop{
		Registry:  reg,
		In:        opts.Stdin,
		Out:       opts.Stdout,
		Err:       opts.Stderr,
		History:   opts.History,
		Terminate: opts.Terminate,
		Logger:    opts.Logger,
	}
	return loop.Run(ctx)
}

// IssueFor maps a bootstrap error to the issue describing it.
func IssueFor(err error) (issue.Id, bool) {
	switch {
	case errors.Is(err, registry.ErrDuplicateCommand):
		return issue.DuplicateCommandId, true
	case errors.Is(err, discovery.ErrUnknownRootType):
		return issue.UnknownRootTypeId, true
	case errors.Is(err, discovery.ErrInvalidRoot):
		return issue.InvalidRootId, true
	case errors.Is(err, discovery.ErrResolution):
		return issue.ResolutionFailedId, true
	case errors.Is(err, discovery.ErrActivation):
		return issue.ActivationFailedId, true
	default:
		return 0, false
	}
}

func wrapFatal(err error, operation, resource string) error {
	a := issue.Annotate(operation).On(resource)

	id, ok := IssueFor(err)
	if ok {
		a.As(id)
	}
	switch id {
	case issue.DuplicateCommandId:
		a.Try("Rename one of the colliding commands or remove its unit file")
	case issue.UnknownRootTypeId:
		a.Try("Point --root at an existing directory or zip archive")
	case issue.InvalidRootId:
		a.Try("Check that the archive is a valid zip file and readable")
	case issue.ResolutionFailedId:
		a.Try("Make sure every .unit file names a plugin compiled into this binary",
			"Check .lua scripts for errors")
	case issue.ActivationFailedId:
		a.Try("Check the constructor of the failing command group")
	}

	return a.Wrap(err)
}
