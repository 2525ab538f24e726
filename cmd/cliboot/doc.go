// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the cliboot command tree.
//
// Running cliboot without a subcommand bootstraps the plugin registry and
// starts the interactive dispatch loop on the process streams. Subcommands
// list the discovered commands, serve the loop over SSH, print the recorded
// history and manage the configuration file.
package cmd
