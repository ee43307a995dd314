// Package domain contains the core business entities for the Cratestack
// storefront enhancer: catalog records, release groups, and render items.
package domain

import "strings"

// Record is one fetched catalog item: a single physical copy in stock.
type Record struct {
	ID                  string      `json:"id"`
	Title               string      `json:"title"`
	Vendor              string      `json:"vendor"`
	ProductType         string      `json:"product_type"`
	Tags                []string    `json:"tags,omitempty"`
	PriceRange          PriceRange  `json:"price_range"`
	CompareAtPriceRange *PriceRange `json:"compare_at_price_range,omitempty"`
	FeaturedImage       *Image      `json:"featured_image,omitempty"`
	Variants            []Variant   `json:"variants,omitempty"`

	// Metafield-backed attributes. All optional; a record missing artist
	// or album title can never join a release group.
	Artist          string `json:"artist,omitempty"`
	AlbumTitle      string `json:"album_title,omitempty"`
	MediaCondition  string `json:"media_condition,omitempty"`
	SleeveCondition string `json:"sleeve_condition,omitempty"`
	StyleGenre      string `json:"style_genre,omitempty"`
}

// PriceRange holds minimum and maximum prices with a currency code.
type PriceRange struct {
	MinAmount    float64 `json:"min_amount"`
	MaxAmount    float64 `json:"max_amount"`
	CurrencyCode string  `json:"currency_code"`
}

// Image is a product image reference.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
}

// Variant is a purchasable variant of a record.
type Variant struct {
	ID               string           `json:"id"`
	AvailableForSale bool             `json:"available_for_sale"`
	Price            float64          `json:"price"`
	SelectedOptions  []SelectedOption `json:"selected_options,omitempty"`
}

// SelectedOption is a variant option name/value pair.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Groupable reports whether the record carries both attributes needed to
// derive a release key. Records without them always render as singles.
func (r *Record) Groupable() bool {
	return strings.TrimSpace(r.Artist) != "" && strings.TrimSpace(r.AlbumTitle) != ""
}

// AvailableCount returns the number of variants available for sale.
func (r *Record) AvailableCount() int {
	n := 0
	for i := range r.Variants {
		if r.Variants[i].AvailableForSale {
			n++
		}
	}
	return n
}

// IsVariousArtists reports whether the record's artist is a compilation
// marker ("Various", "Various Artists", ...), matched case-insensitively.
func (r *Record) IsVariousArtists() bool {
	a := strings.ToLower(strings.TrimSpace(r.Artist))
	return strings.HasPrefix(a, "various")
}
