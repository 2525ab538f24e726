// SPDX-License-Identifier: MPL-2.0

// Package builtin provides the core commands every bootable application
// gets unless it opts out.
package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/cliboot/cliboot/internal/registry"
	"github.com/cliboot/cliboot/pkg/plugin"
)

// ClearScreen moves the cursor home and erases the display.
const ClearScreen = "\033[H\033[2J"

// Names lists the core commands in registration order.
var Names = []string{"clear", "exit"}

// Register adds the core commands to reg. A name already taken is an error,
// as is any later plugin command reusing one of these names.
func Register(reg *registry.Registry) error {
	if err := reg.Register("clear", Clear); err != nil {
		return fmt.Errorf("register core command: %w", err)
	}
	if err := reg.Register("exit", Exit); err != nil {
		return fmt.Errorf("register core command: %w", err)
	}
	return nil
}

// Clear clears the invoking terminal.
func Clear(ctx context.Context, _ []string) error {
	_, err := io.WriteString(plugin.Stdout(ctx), ClearScreen)
	return err
}

// Exit ends the invoking session with status 0.
func Exit(ctx context.Context, _ []string) error {
	plugin.Terminate(ctx, 0)
	return nil
}
