// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cliboot/cliboot/internal/boot"
	"github.com/cliboot/cliboot/internal/config"
	"github.com/cliboot/cliboot/internal/discovery"
	"github.com/cliboot/cliboot/internal/history"
	"github.com/cliboot/cliboot/internal/issue"
)

var (
	// errConfigLoad marks configuration failures.
	errConfigLoad = errors.New("failed to load configuration")
	// errHistory marks history store failures.
	errHistory = errors.New("history unavailable")
	// errServe marks SSH server failures.
	errServe = errors.New("failed to serve")
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reads its settings through it.
	App struct {
		// Config loads the configuration file.
		Config config.Provider
		// Activator resolves plugin units. Nil uses the default chain.
		Activator discovery.Activator

		flags rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    config.Provider
		Activator discovery.Activator
	}

	// rootFlags holds the global flag values.
	rootFlags struct {
		root       string
		noCore     bool
		configPath string
		verbose    bool
		logLevel   string
	}
)

// NewApp builds an App from deps.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config:    deps.Config,
		Activator: deps.Activator,
	}
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.flags.configPath}
}

// loadConfig loads the configuration and applies the global flag overrides.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfigLoad, err)
	}

	if a.flags.root != "" {
		cfg.Scan.Root = a.flags.root
	}
	if a.flags.noCore {
		cfg.CoreCommands = false
	}
	switch {
	case a.flags.logLevel != "":
		cfg.Log.Level = config.LogLevel(a.flags.logLevel)
	case a.flags.verbose:
		cfg.Log.Level = config.LogLevelDebug
	}
	if err := cfg.Log.Level.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errConfigLoad, err)
	}
	return cfg, nil
}

// bootOptions derives the bootstrap options shared by every subcommand.
func (a *App) bootOptions(cfg *config.Config, logger *slog.Logger) (boot.Application, boot.Options) {
	app := boot.DefaultApplication()
	app.CoreCommands = cfg.CoreCommands
	return app, boot.Options{
		Root:       cfg.Scan.Root,
		Extensions: cfg.Scan.Extensions,
		Activator:  a.Activator,
		Logger:     logger,
	}
}

// openHistory opens the configured history store. Nil with a nil error means
// history is disabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errHistory, err)
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errHistory, err)
	}
	return store, nil
}

// issueFor maps a command failure to the issue describing it. An issue
// linked on the error itself wins over the sentinel mapping.
func issueFor(err error) (issue.Id, bool) {
	if id, ok := issue.IdOf(err); ok {
		return id, true
	}
	if id, ok := boot.IssueFor(err); ok {
		return id, true
	}
	switch {
	case errors.Is(err, errConfigLoad):
		return issue.ConfigLoadFailedId, true
	case errors.Is(err, errHistory):
		return issue.HistoryUnavailableId, true
	case errors.Is(err, errServe):
		return issue.ServeFailedId, true
	default:
		return 0, false
	}
}
