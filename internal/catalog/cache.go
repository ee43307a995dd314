package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// cacheTTL bounds how long a fetched page stays valid. Catalog data moves
// slowly relative to an enhancement run, but stale "N copies" counts should
// not outlive a browsing session.
const cacheTTL = 60 * time.Second

// Cache is a bounded page cache keyed by the full query shape. Replaces
// the unbounded ad hoc query-string maps of earlier designs with explicit
// admission and eviction.
type Cache struct {
	inner *ristretto.Cache[string, *Page]
}

// NewCache creates a page cache holding at most maxEntries pages.
func NewCache(maxEntries int64) (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, *Page]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}
	return &Cache{inner: inner}, nil
}

// Get returns the cached page for a request, if present.
func (c *Cache) Get(req *PageRequest) (*Page, bool) {
	if c == nil {
		return nil, false
	}
	return c.inner.Get(cacheKey(req))
}

// Set stores a page for a request. Each page costs one cache slot.
func (c *Cache) Set(req *PageRequest, page *Page) {
	if c == nil {
		return
	}
	c.inner.SetWithTTL(cacheKey(req), page, 1, cacheTTL)
}

// Wait blocks until pending writes are applied. Used by tests.
func (c *Cache) Wait() {
	c.inner.Wait()
}

// Close releases cache resources.
func (c *Cache) Close() {
	if c != nil {
		c.inner.Close()
	}
}

// cacheKey builds a canonical key from every field that affects the page.
func cacheKey(req *PageRequest) string {
	var b strings.Builder
	b.WriteString(string(req.Mode))
	b.WriteByte('|')
	b.WriteString(req.Query)
	b.WriteByte('|')
	b.WriteString(req.Cursor)
	b.WriteByte('|')
	fmt.Fprintf(&b, "%d", req.PageSize)
	for _, f := range req.Filters {
		b.WriteByte('|')
		switch {
		case f.ProductType != "":
			b.WriteString("pt=" + f.ProductType)
		case f.Price != nil:
			if f.Price.Min != nil {
				fmt.Fprintf(&b, "pmin=%g", *f.Price.Min)
			}
			if f.Price.Max != nil {
				fmt.Fprintf(&b, ";pmax=%g", *f.Price.Max)
			}
		case f.Metafield != nil:
			fmt.Fprintf(&b, "mf=%s.%s=%s", f.Metafield.Namespace, f.Metafield.Key, f.Metafield.Value)
		}
	}
	return b.String()
}
