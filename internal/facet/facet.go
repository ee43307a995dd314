// Package facet translates URL-encoded facet parameters into native
// catalog filters (collection mode) and in-memory predicates (search mode,
// where the remote API accepts no structured filters).
package facet

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cratestack/cratestack-server/internal/catalog"
	"github.com/cratestack/cratestack-server/internal/domain"
)

// Recognized facet query keys.
const (
	keyProductType     = "productType"
	keyProductTypeAlt  = "filter.p.product_type"
	keyPriceMin        = "priceMin"
	keyPriceMax        = "priceMax"
	keyStyleGenre      = "styleGenre"
	keyMediaCondition  = "mediaCondition"
	keySleeveCondition = "sleeveCondition"
)

// metafieldNamespace is where the shop keeps its release attributes.
const metafieldNamespace = "custom"

// Params holds the parsed facet selection. Empty slices and nil bounds
// impose no constraint.
type Params struct {
	ProductTypes     []string
	PriceMin         *float64
	PriceMax         *float64
	StyleGenres      []string
	MediaConditions  []string
	SleeveConditions []string
}

// Parse extracts recognized facet keys from URL query parameters.
// Repeated keys and comma-joined values are both accepted:
// ?productType=LP&productType=CD and ?productType=LP,CD are equivalent.
// The storefront theme's native filter key for product type is accepted
// as an alias.
func Parse(query url.Values) Params {
	p := Params{
		ProductTypes:     append(collectValues(query, keyProductType), collectValues(query, keyProductTypeAlt)...),
		StyleGenres:      collectValues(query, keyStyleGenre),
		MediaConditions:  collectValues(query, keyMediaCondition),
		SleeveConditions: collectValues(query, keySleeveCondition),
	}
	p.PriceMin = parsePrice(query.Get(keyPriceMin))
	p.PriceMax = parsePrice(query.Get(keyPriceMax))
	return p
}

// ParseURL is a convenience wrapper over Parse for a full URL string.
func ParseURL(raw string) Params {
	u, err := url.Parse(raw)
	if err != nil {
		return Params{}
	}
	return Parse(u.Query())
}

// IsEmpty reports whether no facet constraint is active.
func (p Params) IsEmpty() bool {
	return len(p.ProductTypes) == 0 &&
		p.PriceMin == nil && p.PriceMax == nil &&
		len(p.StyleGenres) == 0 &&
		len(p.MediaConditions) == 0 &&
		len(p.SleeveConditions) == 0
}

// CatalogFilters converts the selection into native catalog filter entries:
// one entry per value. The catalog API ORs entries within a facet category
// and ANDs across categories.
func (p Params) CatalogFilters() []catalog.Filter {
	var filters []catalog.Filter

	for _, t := range p.ProductTypes {
		filters = append(filters, catalog.Filter{ProductType: t})
	}

	if p.PriceMin != nil || p.PriceMax != nil {
		filters = append(filters, catalog.Filter{
			Price: &catalog.PriceFilter{Min: p.PriceMin, Max: p.PriceMax},
		})
	}

	for _, g := range p.StyleGenres {
		filters = append(filters, metafieldFilter("style_genre", g))
	}
	for _, c := range p.MediaConditions {
		filters = append(filters, metafieldFilter("media_condition", c))
	}
	for _, c := range p.SleeveConditions {
		filters = append(filters, metafieldFilter("sleeve_condition", c))
	}

	return filters
}

// Predicate builds the search-mode record filter. Every active facet
// category must match (AND across categories); within a category any
// value suffices (OR within category).
func (p Params) Predicate() func(*domain.Record) bool {
	return func(r *domain.Record) bool {
		if len(p.ProductTypes) > 0 && !matchesAnyProductType(r.ProductType, p.ProductTypes) {
			return false
		}
		if p.PriceMin != nil && r.PriceRange.MinAmount < *p.PriceMin {
			return false
		}
		if p.PriceMax != nil && r.PriceRange.MinAmount > *p.PriceMax {
			return false
		}
		if len(p.StyleGenres) > 0 && !matchesAnySubstring(r.StyleGenre, p.StyleGenres) {
			return false
		}
		if len(p.MediaConditions) > 0 && !matchesAnyExact(r.MediaCondition, p.MediaConditions) {
			return false
		}
		if len(p.SleeveConditions) > 0 && !matchesAnyExact(r.SleeveCondition, p.SleeveConditions) {
			return false
		}
		return true
	}
}

func metafieldFilter(key, value string) catalog.Filter {
	return catalog.Filter{
		Metafield: &catalog.MetafieldFilter{
			Namespace: metafieldNamespace,
			Key:       key,
			Value:     value,
		},
	}
}

// collectValues gathers every value for a key, splitting comma-joined
// entries and dropping empties.
func collectValues(query url.Values, key string) []string {
	var out []string
	for _, raw := range query[key] {
		for part := range strings.SplitSeq(raw, ",") {
			if v := strings.TrimSpace(part); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parsePrice(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func matchesAnyExact(value string, wanted []string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, w := range wanted {
		if v == strings.ToLower(strings.TrimSpace(w)) {
			return true
		}
	}
	return false
}

func matchesAnySubstring(value string, wanted []string) bool {
	v := strings.ToLower(value)
	for _, w := range wanted {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" && strings.Contains(v, w) {
			return true
		}
	}
	return false
}
