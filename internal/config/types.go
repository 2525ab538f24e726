// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// LogLevelDebug logs everything, including each scanned unit.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs informational messages and above.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of emitted log records.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Scan configures plugin discovery.
		Scan ScanConfig `json:"scan" yaml:"scan" toml:"scan" mapstructure:"scan"`
		// CoreCommands registers the clear and exit commands (default: true).
		CoreCommands bool `json:"core_commands" yaml:"core_commands" toml:"core_commands" mapstructure:"core_commands"`
		// History configures the command history store.
		History HistoryConfig `json:"history" yaml:"history" toml:"history" mapstructure:"history"`
		// Log configures process logging.
		Log LogConfig `json:"log" yaml:"log" toml:"log" mapstructure:"log"`
		// Serve configures the SSH server.
		Serve ServeConfig `json:"serve" yaml:"serve" toml:"serve" mapstructure:"serve"`
	}

	// ScanConfig configures where and what the plugin scanner looks for.
	ScanConfig struct {
		// Root is a directory or zip archive. Empty means the executable's directory.
		Root string `json:"root" yaml:"root" toml:"root" mapstructure:"root"`
		// Extensions are the unit file extensions to scan for.
		Extensions []string `json:"extensions" yaml:"extensions" toml:"extensions" mapstructure:"extensions"`
	}

	// HistoryConfig configures the command history store.
	HistoryConfig struct {
		Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
		// Path is the database file. Empty means history.db in the data directory.
		Path string `json:"path" yaml:"path" toml:"path" mapstructure:"path"`
	}

	// LogConfig configures process logging.
	LogConfig struct {
		Level LogLevel `json:"level" yaml:"level" toml:"level" mapstructure:"level"`
	}

	// ServeConfig configures the SSH server.
	ServeConfig struct {
		Host string `json:"host" yaml:"host" toml:"host" mapstructure:"host"`
		Port int    `json:"port" yaml:"port" toml:"port" mapstructure:"port"`
		// HostKeyPath is the server key. Empty means ssh_host_ed25519 in the data directory.
		HostKeyPath string `json:"host_key_path" yaml:"host_key_path" toml:"host_key_path" mapstructure:"host_key_path"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Extensions: []string{".unit", ".lua"},
		},
		CoreCommands: true,
		History: HistoryConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: LogLevelWarn,
		},
		Serve: ServeConfig{
			Host: "127.0.0.1",
			Port: 2222,
		},
	}
}

// Validate returns an error if the level is not recognized.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Validate checks constraints the schema cannot express once environment
// overrides have been applied.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Log.Level.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, ext := range c.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 || strings.Contains(ext[1:], ".") {
			errs = append(errs, fmt.Errorf("scan.extensions: %q must be a single extension with a leading dot", ext))
		}
	}
	if c.Serve.Port <= 0 || c.Serve.Port > 65535 {
		errs = append(errs, fmt.Errorf("serve.port: %d is out of range", c.Serve.Port))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and every field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
