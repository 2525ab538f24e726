// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"sort"
	"strings"

	"github.com/cliboot/cliboot/pkg/plugin"
)

// Registry maps command names to handlers.
type Registry struct {
	commands map[string]plugin.Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{commands: make(map[string]plugin.Handler)}
}

// Register adds h under name. It fails with a DuplicateCommandError if the
// name is already taken.
func (r *Registry) Register(name string, h plugin.Handler) error {
	if name == "" {
		return ErrEmptyCommandName
	}
	if h == nil {
		return ErrNilHandler
	}
	if _, exists := r.commands[name]; exists {
		return &DuplicateCommandError{Name: name}
	}
	r.commands[name] = h
	return nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (plugin.Handler, bool) {
	h, ok := r.commands[name]
	return h, ok
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.commands)
}

// Execute tokenizes raw and runs the handler registered under the first
// token with the full token vector. An empty vector is a no-op.
//
// Handler errors are returned wrapped in a CommandError. Panics are not
// recovered here; the dispatch loop owns that.
func (r *Registry) Execute(ctx context.Context, raw string) error {
	args := Tokenize(raw)
	if len(args) == 0 {
		return nil
	}

	h, ok := r.commands[args[0]]
	if !ok {
		return &CommandNotFoundError{Name: args[0]}
	}

	if err := h(ctx, args); err != nil {
		return &CommandError{Name: args[0], Err: err}
	}
	return nil
}

// Tokenize splits raw on single spaces. Empty tokens between separators are
// kept; trailing empty tokens are dropped, so a blank line yields no tokens.
// There is no quoting or escaping.
func Tokenize(raw string) []string {
	tokens := strings.Split(raw, " ")
	end := len(tokens)
	for end > 0 && tokens[end-1] == "" {
		end--
	}
	return tokens[:end]
}
