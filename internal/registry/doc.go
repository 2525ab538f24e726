// SPDX-License-Identifier: MPL-2.0

// Package registry holds the command dispatch table of a running shell.
//
// A Registry maps command names to handlers. Names are unique: registering a
// second handler under an existing name fails instead of overwriting it. The
// table is filled during bootstrap and only read afterwards, so it carries no
// locking.
package registry
