// SPDX-License-Identifier: MPL-2.0

// Package plugin defines the contract between cliboot and command plugins.
//
// A plugin is a type that declares itself a command group and exposes one or
// more entry points, each registered as a shell command. Go plugins declare
// their types at build time through a Catalog:
//
//	func init() {
//		plugin.Register(plugin.Group("acme.Tools", newTools,
//			plugin.Command("greet", (*Tools).Greet),
//		))
//	}
//
// The scanner only activates a declared type when a unit for its identifier
// is present in the scan root (for "acme.Tools", the file acme/Tools.unit).
//
// Handlers receive the full token vector, including the command name at
// index 0. The I/O streams of the session that issued the command are
// carried by the context; use Stdout, Stderr and Stdin to reach them.
package plugin
