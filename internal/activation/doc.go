// SPDX-License-Identifier: MPL-2.0

// Package activation provides the strategies that turn discovered plugin
// units into plugin types.
//
// Three strategies are available:
//   - CatalogActivator resolves ".unit" marker files against the build-time
//     plugin catalog populated by plugin.Register.
//   - LuaActivator executes ".lua" scripts in a restricted gopher-lua state
//     and exposes the returned table as a command group.
//   - Chain routes each unit to one of the above by its extension.
package activation
