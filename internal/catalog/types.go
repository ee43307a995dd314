// Package catalog provides a rate-limited, cached client for the storefront
// product catalog API. Collection queries support native filters; search
// queries do not, so search-mode callers filter client-side.
package catalog

import "github.com/cratestack/cratestack-server/internal/domain"

// Mode selects between the two catalog query shapes.
type Mode string

// Query modes.
const (
	// ModeCollection queries a collection by handle with native filters.
	ModeCollection Mode = "collection"
	// ModeSearch queries free-text search. The API accepts no structured
	// filters in this mode.
	ModeSearch Mode = "search"
)

// maxPageSize is the catalog API's per-page ceiling.
const maxPageSize = 250

// Filter is one native catalog filter entry. Exactly one field is set.
// Entries for the same facet are ORed by the API, entries across facets
// are ANDed.
type Filter struct {
	ProductType string           `json:"productType,omitempty"`
	Price       *PriceFilter     `json:"price,omitempty"`
	Metafield   *MetafieldFilter `json:"productMetafield,omitempty"`
}

// PriceFilter bounds the product price. Nil bounds are open.
type PriceFilter struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// MetafieldFilter matches a product metafield value.
type MetafieldFilter struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// PageRequest describes one paginated catalog query.
type PageRequest struct {
	Mode     Mode
	Query    string // collection handle or search terms, per Mode
	Filters  []Filter
	Cursor   string // opaque continuation cursor, empty for the first page
	PageSize int
}

// Page is one normalized page of catalog results.
type Page struct {
	Records     []*domain.Record
	HasNextPage bool
	EndCursor   string
}
