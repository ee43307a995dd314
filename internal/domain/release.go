package domain

import "strings"

// Format is the physical media format derived from a record's product type.
type Format string

// Derived formats, from the fixed product-type lookup.
const (
	Format12Inch   Format = `12"`
	Format10Inch   Format = `10"`
	Format7Inch    Format = `7"`
	FormatLPBox    Format = "LP Box"
	FormatCDBox    Format = "CD Box"
	FormatBoxSet   Format = "Box Set"
	FormatLP       Format = "LP"
	FormatCD       Format = "CD"
	FormatCassette Format = "Cassette"
	FormatEP       Format = "EP"
	FormatDVD      Format = "DVD"
	FormatBluRay   Format = "Blu-ray"
	FormatVHS      Format = "VHS"
	FormatUnknown  Format = ""
)

// formatRule maps a product-type substring to a derived format.
type formatRule struct {
	token  string
	format Format
}

// formatRules is checked in order, first match wins. Size tokens come
// before "box" and "lp" because the substrings overlap: a `12" Vinyl Box
// Set` must derive `12"`, not a box format.
var formatRules = []formatRule{
	{"12", Format12Inch},
	{"10", Format10Inch},
	{"7", Format7Inch},
	{"box", FormatBoxSet}, // refined by box sub-rules below
	{"lp", FormatLP},
	{"cd", FormatCD},
	{"cassette", FormatCassette},
	{"ep", FormatEP},
	{"dvd", FormatDVD},
	{"blu", FormatBluRay},
	{"vhs", FormatVHS},
}

// DeriveFormat maps a free-text product type to a fixed format.
// Unrecognized types derive the empty format.
func DeriveFormat(productType string) Format {
	t := strings.ToLower(strings.TrimSpace(productType))
	if t == "" {
		return FormatUnknown
	}

	for _, rule := range formatRules {
		if !strings.Contains(t, rule.token) {
			continue
		}
		if rule.token == "box" {
			switch {
			case strings.Contains(t, "lp"), strings.Contains(t, "vinyl"):
				return FormatLPBox
			case strings.Contains(t, "cd"):
				return FormatCDBox
			default:
				return FormatBoxSet
			}
		}
		return rule.format
	}
	return FormatUnknown
}

// NormalizeKeyPart lowercases and trims a release key component.
func NormalizeKeyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ReleaseKey is the normalized composite key that clusters copies of the
// same release: artist | album | format.
type ReleaseKey string

// KeyFor derives the release key for a record. Returns ok=false when the
// record is missing artist or album title, in which case it has no key.
func KeyFor(r *Record) (ReleaseKey, bool) {
	if !r.Groupable() {
		return "", false
	}
	key := NormalizeKeyPart(r.Artist) + "|" +
		NormalizeKeyPart(r.AlbumTitle) + "|" +
		string(DeriveFormat(r.ProductType))
	return ReleaseKey(key), true
}
