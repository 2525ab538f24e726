// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/cliboot/cliboot/internal/discovery"
	"github.com/cliboot/cliboot/pkg/plugin"
)

// Chain routes units to activators by their matched extension.
type Chain struct {
	routes map[string]discovery.Activator
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{routes: make(map[string]discovery.Activator)}
}

// Default returns the standard chain: ".unit" markers resolve through
// catalog (the process catalog when nil) and ".lua" files run as scripts.
func Default(catalog *plugin.Catalog) *Chain {
	return NewChain().
		Route(".unit", NewCatalogActivator(catalog)).
		Route(".lua", NewLuaActivator())
}

// Route sends units with extension ext to act, replacing any earlier route.
func (c *Chain) Route(ext string, act discovery.Activator) *Chain {
	c.routes[ext] = act
	return c
}

// Extensions returns the routed extensions in sorted order.
func (c *Chain) Extensions() []string {
	exts := make([]string, 0, len(c.routes))
	for ext := range c.routes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Resolve implements discovery.Activator.
func (c *Chain) Resolve(ctx context.Context, unit discovery.Unit) (plugin.Type, error) {
	act, ok := c.routes[unit.Ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoActivator, unit.Ext)
	}
	return act.Resolve(ctx, unit)
}

// Close releases every routed activator that holds resources.
func (c *Chain) Close() error {
	var errs []error
	for _, act := range c.routes {
		if closer, ok := act.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
