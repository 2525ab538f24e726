// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cliboot/cliboot/internal/shell"
)

const (
	// StateCreated indicates the server has been created but not started.
	StateCreated State = iota
	// StateStarting indicates the server is in the process of starting.
	StateStarting
	// StateRunning indicates the server is running and accepting connections.
	StateRunning
	// StateStopping indicates the server is shutting down.
	StateStopping
	// StateStopped indicates the server has stopped (terminal state).
	StateStopped
	// StateFailed indicates the server failed to start or encountered a fatal error (terminal state).
	StateFailed

	// DefaultHost is the loopback address the server binds to by default.
	DefaultHost = "127.0.0.1"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid SSH server config")
	// ErrNoRegistry is returned by Start when no executor was configured.
	ErrNoRegistry = errors.New("no command registry configured")
	// ErrAlreadyStarted is returned by Start on a server that left StateCreated.
	ErrAlreadyStarted = errors.New("server already started")
)

type (
	// State represents the lifecycle state of the server.
	State int32

	// Config holds immutable configuration for the SSH server.
	Config struct {
		// Host is the address to bind to (default: 127.0.0.1)
		Host string
		// Port is the port to listen on (0 = auto-select)
		Port int
		// HostKeyPath is where the server's host key lives. A missing key is
		// generated on first start. Empty means an in-memory key.
		HostKeyPath string
		// AuthorizedKeysPath restricts logins to the listed public keys.
		// Empty accepts every client.
		AuthorizedKeysPath string
		// Registry executes the lines typed in every session.
		Registry shell.Executor
		// History, when set, records lines from every session.
		History shell.History
		// ShutdownTimeout is the timeout for graceful shutdown (default: 10s)
		ShutdownTimeout time.Duration
		// StartupTimeout is the max time to wait for server to be ready (default: 5s)
		StartupTimeout time.Duration
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// String returns a human-readable representation of the server state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Host:            DefaultHost,
		ShutdownTimeout: 10 * time.Second,
		StartupTimeout:  5 * time.Second,
	}
}

// Validate checks the address fields of the configuration.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 0-65535", c.Port))
	}
	if c.ShutdownTimeout < 0 || c.StartupTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if host := strings.TrimSpace(c.Host); host != "" && c.AuthorizedKeysPath == "" && !isLoopbackHost(host) {
		errs = append(errs, fmt.Errorf("host %s is not a loopback address and requires an authorized keys file", host))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// isLoopbackHost reports whether host only accepts connections from the
// local machine.
func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid SSH server config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns the sentinel followed by the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
