package catalog

import (
	"strconv"

	"github.com/cratestack/cratestack-server/internal/domain"
)

// productFields is shared by both query shapes. The metafield aliases keep
// the response flat regardless of how the shop namespaces its fields.
const productFields = `
fragment ProductFields on Product {
  id
  title
  vendor
  productType
  tags
  priceRange {
    minVariantPrice { amount currencyCode }
    maxVariantPrice { amount currencyCode }
  }
  compareAtPriceRange {
    minVariantPrice { amount currencyCode }
    maxVariantPrice { amount currencyCode }
  }
  featuredImage { url altText }
  variants(first: 10) {
    edges {
      node {
        id
        availableForSale
        price { amount currencyCode }
        selectedOptions { name value }
      }
    }
  }
  artist: metafield(namespace: "custom", key: "artist") { value }
  albumTitle: metafield(namespace: "custom", key: "album_title") { value }
  mediaCondition: metafield(namespace: "custom", key: "media_condition") { value }
  sleeveCondition: metafield(namespace: "custom", key: "sleeve_condition") { value }
  styleGenre: metafield(namespace: "custom", key: "style_genre") { value }
}`

const collectionQuery = productFields + `
query CollectionProducts($handle: String!, $first: Int!, $after: String, $filters: [ProductFilter!]) {
  collection(handle: $handle) {
    products(first: $first, after: $after, filters: $filters) {
      edges { node { ...ProductFields } }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

const searchQuery = productFields + `
query SearchProducts($terms: String!, $first: Int!, $after: String) {
  search(query: $terms, first: $first, after: $after, types: PRODUCT) {
    edges { node { ... on Product { ...ProductFields } } }
    pageInfo { hasNextPage endCursor }
  }
}`

// Raw API response types (internal).

type rawResponse struct {
	Data   *rawData   `json:"data"`
	Errors []rawError `json:"errors"`
}

type rawError struct {
	Message string `json:"message"`
}

type rawData struct {
	Collection *rawCollection `json:"collection"`
	Search     *rawConnection `json:"search"`
}

type rawCollection struct {
	Products rawConnection `json:"products"`
}

type rawConnection struct {
	Edges    []rawEdge   `json:"edges"`
	PageInfo rawPageInfo `json:"pageInfo"`
}

type rawEdge struct {
	Node rawProduct `json:"node"`
}

type rawPageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type rawProduct struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Vendor              string         `json:"vendor"`
	ProductType         string         `json:"productType"`
	Tags                []string       `json:"tags"`
	PriceRange          rawPriceRange  `json:"priceRange"`
	CompareAtPriceRange *rawPriceRange `json:"compareAtPriceRange"`
	FeaturedImage       *rawImage      `json:"featuredImage"`
	Variants            rawVariantConn `json:"variants"`
	Artist              *rawMetafield  `json:"artist"`
	AlbumTitle          *rawMetafield  `json:"albumTitle"`
	MediaCondition      *rawMetafield  `json:"mediaCondition"`
	SleeveCondition     *rawMetafield  `json:"sleeveCondition"`
	StyleGenre          *rawMetafield  `json:"styleGenre"`
}

type rawPriceRange struct {
	MinVariantPrice rawMoney `json:"minVariantPrice"`
	MaxVariantPrice rawMoney `json:"maxVariantPrice"`
}

type rawMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type rawImage struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

type rawVariantConn struct {
	Edges []rawVariantEdge `json:"edges"`
}

type rawVariantEdge struct {
	Node rawVariant `json:"node"`
}

type rawVariant struct {
	ID               string              `json:"id"`
	AvailableForSale bool                `json:"availableForSale"`
	Price            rawMoney            `json:"price"`
	SelectedOptions  []rawSelectedOption `json:"selectedOptions"`
}

type rawSelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type rawMetafield struct {
	Value string `json:"value"`
}

func metafieldValue(m *rawMetafield) string {
	if m == nil {
		return ""
	}
	return m.Value
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func toPriceRange(r rawPriceRange) domain.PriceRange {
	return domain.PriceRange{
		MinAmount:    parseAmount(r.MinVariantPrice.Amount),
		MaxAmount:    parseAmount(r.MaxVariantPrice.Amount),
		CurrencyCode: r.MinVariantPrice.CurrencyCode,
	}
}

// toRecord converts a raw product node to a domain record.
func toRecord(p *rawProduct) *domain.Record {
	rec := &domain.Record{
		ID:              p.ID,
		Title:           p.Title,
		Vendor:          p.Vendor,
		ProductType:     p.ProductType,
		Tags:            p.Tags,
		PriceRange:      toPriceRange(p.PriceRange),
		Artist:          metafieldValue(p.Artist),
		AlbumTitle:      metafieldValue(p.AlbumTitle),
		MediaCondition:  metafieldValue(p.MediaCondition),
		SleeveCondition: metafieldValue(p.SleeveCondition),
		StyleGenre:      metafieldValue(p.StyleGenre),
	}

	if p.CompareAtPriceRange != nil && p.CompareAtPriceRange.MinVariantPrice.Amount != "" {
		pr := toPriceRange(*p.CompareAtPriceRange)
		rec.CompareAtPriceRange = &pr
	}

	if p.FeaturedImage != nil {
		rec.FeaturedImage = &domain.Image{
			URL:     p.FeaturedImage.URL,
			AltText: p.FeaturedImage.AltText,
		}
	}

	for i := range p.Variants.Edges {
		v := &p.Variants.Edges[i].Node
		variant := domain.Variant{
			ID:               v.ID,
			AvailableForSale: v.AvailableForSale,
			Price:            parseAmount(v.Price.Amount),
		}
		for _, opt := range v.SelectedOptions {
			variant.SelectedOptions = append(variant.SelectedOptions, domain.SelectedOption{
				Name:  opt.Name,
				Value: opt.Value,
			})
		}
		rec.Variants = append(rec.Variants, variant)
	}

	return rec
}

func toPage(conn *rawConnection) *Page {
	page := &Page{
		Records:     make([]*domain.Record, 0, len(conn.Edges)),
		HasNextPage: conn.PageInfo.HasNextPage,
		EndCursor:   conn.PageInfo.EndCursor,
	}
	for i := range conn.Edges {
		page.Records = append(page.Records, toRecord(&conn.Edges[i].Node))
	}
	return page
}
