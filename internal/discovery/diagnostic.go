// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// SeverityInfo marks units skipped by design, such as non-group types.
	SeverityInfo Severity = "info"
	// SeverityWarning indicates a recoverable enumeration problem.
	SeverityWarning Severity = "warning"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic represents a structured, non-fatal discovery event that is
	// returned to callers rather than written to stderr.
	Diagnostic struct {
		// Severity is the diagnostic level.
		Severity Severity
		// Code is a machine-readable identifier (e.g., "unit_not_group").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the unit or directory path associated with this diagnostic.
		Path string
		// Cause is the underlying error (optional).
		Cause error
	}
)
