// SPDX-License-Identifier: MPL-2.0

package plugin

import "context"

type (
	// Handler runs a command. args[0] is the command name as typed.
	Handler func(ctx context.Context, args []string) error

	// EntryPoint is one command declared by an activated group.
	EntryPoint struct {
		// Command is the name the handler is registered under.
		Command string
		// Handler is bound to the activated group instance.
		Handler Handler
	}

	// Type is a resolved plugin unit.
	Type interface {
		// ID returns the qualified identifier the type was resolved from.
		ID() string
		// IsGroup reports whether the type declares itself a command group.
		// Types that are not groups contribute no commands.
		IsGroup() bool
		// New activates one instance of the group using default construction.
		New(ctx context.Context) (Instance, error)
	}

	// Instance is an activated command group.
	Instance interface {
		EntryPoints() []EntryPoint
	}
)
