// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/cliboot/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/cliboot/config.cue on macOS, %APPDATA%\cliboot\config.cue
// on Windows) and validated against the embedded schema in config_schema.cue.
// Environment variables prefixed with CLIBOOT_ override file values, with dots in
// key names replaced by underscores (CLIBOOT_SCAN_ROOT, CLIBOOT_SERVE_PORT).
package config
