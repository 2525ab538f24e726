// SPDX-License-Identifier: MPL-2.0

// Package discovery finds command plugins under a scan root and registers
// the commands they declare.
//
// This package intentionally combines two related concerns:
//   - Unit enumeration: walking a directory tree or a zip archive's entry
//     index and turning matching files into qualified unit identifiers
//   - Command registration: resolving each unit through an Activator,
//     activating command groups and feeding their entry points to the registry
//
// Both enumeration strategies funnel into the same per-unit logic, so a
// directory and an archive with the same contents produce the same registry.
//
// File organization:
//   - discovery.go: Core types (Scanner, Unit, Activator, Report) and errors
//   - discovery_files.go: Root classification and both enumeration adapters
//   - discovery_units.go: Per-unit resolution, activation and registration
//   - diagnostic.go: Non-fatal diagnostics collected during a scan
package discovery
