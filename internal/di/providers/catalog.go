package providers

import (
	"github.com/samber/do/v2"

	"github.com/cratestack/cratestack-server/internal/catalog"
	"github.com/cratestack/cratestack-server/internal/config"
	"github.com/cratestack/cratestack-server/internal/logger"
)

// pageCacheEntries bounds the catalog page cache. A collection run at
// the default page size touches at most 20 pages, so this comfortably
// covers many concurrent shops worth of hot pages.
const pageCacheEntries = 512

// CatalogClientHandle wraps the catalog client with shutdown capability.
type CatalogClientHandle struct {
	*catalog.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideCatalogCache provides the storefront page cache.
func ProvideCatalogCache(i do.Injector) (*catalog.Cache, error) {
	return catalog.NewCache(pageCacheEntries)
}

// ProvideCatalogClient provides the storefront catalog client.
func ProvideCatalogClient(i do.Injector) (*CatalogClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cache := do.MustInvoke[*catalog.Cache](i)

	client := catalog.New(catalog.Options{
		Domain:     cfg.Shop.Domain,
		Token:      cfg.Shop.StorefrontToken,
		APIVersion: cfg.Shop.APIVersion,
	}, cache, log.Logger)

	return &CatalogClientHandle{Client: client}, nil
}
