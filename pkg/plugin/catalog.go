// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrAlreadyDeclared is returned when two types are declared under one identifier.
var ErrAlreadyDeclared = errors.New("plugin type already declared")

// Catalog is a build-time table of plugin types keyed by qualified identifier.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]Type
}

// defaultCatalog receives declarations made through Register.
var defaultCatalog = NewCatalog()

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]Type)}
}

// Default returns the process catalog used by Register.
func Default() *Catalog {
	return defaultCatalog
}

// Register declares t in the process catalog. It panics on a duplicate
// identifier, since declarations run from init functions.
func Register(t Type) {
	if err := defaultCatalog.Declare(t); err != nil {
		panic(err)
	}
}

// Declare adds t to the catalog.
func (c *Catalog) Declare(t Type) error {
	if t == nil || t.ID() == "" {
		return errors.New("plugin type must have a non-empty identifier")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.types[t.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyDeclared, t.ID())
	}
	c.types[t.ID()] = t
	return nil
}

// Lookup returns the type declared under id.
func (c *Catalog) Lookup(id string) (Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.types[id]
	return t, ok
}

// IDs returns every declared identifier in sorted order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
