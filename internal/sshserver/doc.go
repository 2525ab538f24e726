// SPDX-License-Identifier: MPL-2.0

// Package sshserver serves the command dispatch loop over SSH using the Wish
// library.
//
// Every interactive session gets its own loop bound to the session's streams,
// while all sessions share the single command registry built at bootstrap.
// Command execution is serialized across sessions, so handlers never run
// concurrently. The core `exit` command ends only the session that ran it.
package sshserver
