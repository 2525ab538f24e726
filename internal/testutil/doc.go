// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// SetHomeDir and MustChdir redirect the process environment for a test.
// WriteFiles lays out plugin trees. SyncBuffer and WaitFor poll terminal
// output, and DeferStop shuts servers down during cleanup.
package testutil
