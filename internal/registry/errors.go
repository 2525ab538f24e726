// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateCommand is the sentinel wrapped by DuplicateCommandError.
	ErrDuplicateCommand = errors.New("duplicate command")
	// ErrCommandNotFound is the sentinel wrapped by CommandNotFoundError.
	ErrCommandNotFound = errors.New("command not found")
	// ErrEmptyCommandName is returned when registering a command without a name.
	ErrEmptyCommandName = errors.New("command name must not be empty")
	// ErrNilHandler is returned when registering a command without a handler.
	ErrNilHandler = errors.New("command handler must not be nil")
)

type (
	// DuplicateCommandError is returned when a name is registered twice.
	DuplicateCommandError struct {
		Name string
	}

	// CommandNotFoundError is returned when no handler matches the first token.
	CommandNotFoundError struct {
		Name string
	}

	// CommandError wraps a failure returned by a command handler.
	CommandError struct {
		Name string
		Err  error
	}
)

// Error implements the error interface.
func (e *DuplicateCommandError) Error() string {
	return fmt.Sprintf("duplicate command found: %s", e.Name)
}

// Unwrap returns ErrDuplicateCommand for errors.Is() compatibility.
func (e *DuplicateCommandError) Unwrap() error { return ErrDuplicateCommand }

// Error implements the error interface.
func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("command not found: %s", e.Name)
}

// Unwrap returns ErrCommandNotFound for errors.Is() compatibility.
func (e *CommandNotFoundError) Unwrap() error { return ErrCommandNotFound }

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("error executing command %s: %v", e.Name, e.Err)
}

// Unwrap returns the handler's error.
func (e *CommandError) Unwrap() error { return e.Err }
