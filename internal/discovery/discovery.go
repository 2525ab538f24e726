// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/cliboot/cliboot/internal/registry"
	"github.com/cliboot/cliboot/pkg/plugin"
)

const (
	// SourceDirectory indicates units were enumerated from a directory tree.
	SourceDirectory Source = iota + 1
	// SourceArchive indicates units were enumerated from a zip archive.
	SourceArchive
)

// DefaultExtensions are the unit extensions scanned when none are configured.
var DefaultExtensions = []string{".unit", ".lua"}

var (
	// ErrResolution is the sentinel wrapped by ResolutionError.
	ErrResolution = errors.New("plugin unit resolution failed")
	// ErrActivation is the sentinel wrapped by ActivationError.
	ErrActivation = errors.New("plugin group activation failed")
	// ErrInvalidRoot is the sentinel wrapped by InvalidRootError.
	ErrInvalidRoot = errors.New("invalid scan root")
	// ErrUnknownRootType is the sentinel wrapped by UnknownRootTypeError.
	ErrUnknownRootType = errors.New("unknown scan root type")
)

type (
	// Source represents how units were enumerated.
	Source int

	// Unit is a candidate plugin found under the scan root.
	Unit struct {
		// ID is the qualified identifier: the root-relative path with
		// separators replaced by '.' and the extension stripped.
		ID string
		// Path is the slash-separated path of the unit inside FS.
		Path string
		// Ext is the matched unit extension, including the leading dot.
		Ext string
		// FS gives access to the unit's contents. It is only valid while the
		// scan that produced the unit is running.
		FS fs.FS
	}

	// Activator resolves a unit to a plugin type. It is the host's plugin
	// activation capability; the scanner does not care how types are found.
	Activator interface {
		Resolve(ctx context.Context, unit Unit) (plugin.Type, error)
	}

	// Option configures a Scanner.
	Option func(*Scanner)

	// Scanner enumerates units under a root and registers their commands.
	Scanner struct {
		activator  Activator
		registry   *registry.Registry
		extensions []string
		report     Report
	}

	// Report summarizes a scan.
	Report struct {
		// Root is the scanned location.
		Root string
		// Source is how the root was enumerated.
		Source Source
		// Units counts candidate units seen.
		Units int
		// Groups lists the identifiers of activated command groups.
		Groups []string
		// Commands counts registered commands.
		Commands int
		// Diagnostics holds non-fatal events, including skipped units.
		Diagnostics []Diagnostic
	}

	// ResolutionError is returned when a unit cannot be resolved to a type.
	ResolutionError struct {
		UnitID string
		Path   string
		Err    error
	}

	// ActivationError is returned when a resolved group cannot be activated.
	ActivationError struct {
		UnitID string
		Err    error
	}

	// InvalidRootError is returned when a root does not match the adapter
	// it was handed to.
	InvalidRootError struct {
		Root   string
		Reason string
	}

	// UnknownRootTypeError is returned when a root is neither a regular file
	// nor a directory.
	UnknownRootTypeError struct {
		Root string
		Err  error
	}
)

// String returns a human-readable source name.
func (s Source) String() string {
	switch s {
	case SourceDirectory:
		return "directory"
	case SourceArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// WithExtensions sets the unit extensions to scan for. Extensions without a
// leading dot get one.
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) {
		if len(exts) == 0 {
			return
		}
		s.extensions = s.extensions[:0]
		for _, ext := range exts {
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			s.extensions = append(s.extensions, ext)
		}
	}
}

// New creates a Scanner that resolves units with act and registers into reg.
func New(act Activator, reg *registry.Registry, opts ...Option) *Scanner {
	s := &Scanner{
		activator:  act,
		registry:   reg,
		extensions: append([]string(nil), DefaultExtensions...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extensions returns the unit extensions the scanner matches.
func (s *Scanner) Extensions() []string {
	return append([]string(nil), s.extensions...)
}

// Report returns a copy of the scan summary accumulated so far.
func (s *Scanner) Report() Report {
	r := s.report
	r.Groups = append([]string(nil), s.report.Groups...)
	r.Diagnostics = append([]Diagnostic(nil), s.report.Diagnostics...)
	return r
}

// matchExtension returns the configured extension name ends with, if any.
func (s *Scanner) matchExtension(name string) (string, bool) {
	for _, ext := range s.extensions {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return ext, true
		}
	}
	return "", false
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve plugin unit %s (%s): %v", e.UnitID, e.Path, e.Err)
}

// Unwrap returns both ErrResolution and the underlying cause.
func (e *ResolutionError) Unwrap() []error { return []error{ErrResolution, e.Err} }

// Error implements the error interface.
func (e *ActivationError) Error() string {
	return fmt.Sprintf("failed to activate command group %s: %v", e.UnitID, e.Err)
}

// Unwrap returns both ErrActivation and the underlying cause.
func (e *ActivationError) Unwrap() []error { return []error{ErrActivation, e.Err} }

// Error implements the error interface.
func (e *InvalidRootError) Error() string {
	return fmt.Sprintf("invalid scan root %s: %s", e.Root, e.Reason)
}

// Unwrap returns ErrInvalidRoot for errors.Is() compatibility.
func (e *InvalidRootError) Unwrap() error { return ErrInvalidRoot }

// Error implements the error interface.
func (e *UnknownRootTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unknown scan root type %s: %v", e.Root, e.Err)
	}
	return fmt.Sprintf("unknown scan root type %s: not a regular file or directory", e.Root)
}

// Unwrap returns both ErrUnknownRootType and the underlying cause, if any.
func (e *UnknownRootTypeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnknownRootType, e.Err}
	}
	return []error{ErrUnknownRootType}
}
