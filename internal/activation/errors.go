// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a unit names no declared plugin type.
	ErrUnknownType = errors.New("no plugin type declared for unit")
	// ErrNoActivator is returned when no strategy handles a unit's extension.
	ErrNoActivator = errors.New("no activator for unit extension")
	// ErrScript is the sentinel wrapped by ScriptError.
	ErrScript = errors.New("lua script failed")
)

// ScriptError is returned when a Lua script fails to load or run.
type ScriptError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua script %s: %v", e.Path, e.Err)
}

// Unwrap returns both ErrScript and the underlying cause.
func (e *ScriptError) Unwrap() []error { return []error{ErrScript, e.Err} }
