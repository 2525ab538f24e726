// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"context"
	"fmt"

	"github.com/cliboot/cliboot/internal/discovery"
	"github.com/cliboot/cliboot/pkg/plugin"
)

// CatalogActivator resolves units by looking their identifier up in a
// plugin catalog. The unit file itself is only a marker; its content is not read.
type CatalogActivator struct {
	catalog *plugin.Catalog
}

// NewCatalogActivator creates an activator backed by c, or by the process
// catalog when c is nil.
func NewCatalogActivator(c *plugin.Catalog) *CatalogActivator {
	if c == nil {
		c = plugin.Default()
	}
	return &CatalogActivator{catalog: c}
}

// Resolve implements discovery.Activator.
func (a *CatalogActivator) Resolve(_ context.Context, unit discovery.Unit) (plugin.Type, error) {
	t, ok := a.catalog.Lookup(unit.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, unit.ID)
	}
	return t, nil
}
