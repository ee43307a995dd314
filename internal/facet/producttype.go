package facet

import "strings"

// productTypeVariants maps a canonical facet value to the product-type
// tokens that count as a match. Shops name the same physical format many
// ways ("7 inch", `7"`, "45"), so a generic substring match over the facet
// value alone misses known variants.
//
//nolint:gochecknoglobals // Static lookup table for format matching
var productTypeVariants = map[string][]string{
	`7"`:       {`7"`, "7 inch", "7in", "7-inch", "45"},
	`10"`:      {`10"`, "10 inch", "10in", "10-inch"},
	`12"`:      {`12"`, "12 inch", "12in", "12-inch"},
	"lp":       {"lp", "album", "vinyl"},
	"cd":       {"cd", "compact disc"},
	"cassette": {"cassette", "tape", "mc"},
	"ep":       {"ep"},
	"box set":  {"box"},
	"dvd":      {"dvd"},
	"blu-ray":  {"blu-ray", "blu ray", "bluray"},
	"vhs":      {"vhs"},
}

// matchesAnyProductType reports whether a record's product type matches
// any of the selected facet values, using the variant-token table for
// known formats and plain substring match otherwise.
func matchesAnyProductType(productType string, wanted []string) bool {
	pt := strings.ToLower(productType)
	for _, w := range wanted {
		key := strings.ToLower(strings.TrimSpace(w))
		if key == "" {
			continue
		}
		tokens, known := productTypeVariants[key]
		if !known {
			tokens = []string{key}
		}
		for _, token := range tokens {
			if strings.Contains(pt, token) {
				return true
			}
		}
	}
	return false
}
