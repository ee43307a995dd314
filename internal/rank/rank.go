// Package rank re-orders search-mode results with a multi-field weighted
// frequency model plus artist-match adjustments, approximating the
// platform's native search relevance for music catalogs.
package rank

import (
	"slices"
	"strings"

	"github.com/cratestack/cratestack-server/internal/domain"
)

// Weights carries every scoring constant. The values are empirically
// tuned; keep them in one replaceable value so retuning never touches
// the grouping engine.
type Weights struct {
	// Title tiers: full query substring / all tokens / some tokens.
	TitleExactBase   float64
	TitleAllBase     float64
	TitleSomeBase    float64
	TitleExactOccur  float64
	TitleAllOccur    float64
	TitleSomeOccur   float64
	TitleLengthBonus float64

	// Vendor tiers, same shape as title.
	VendorExactBase   float64
	VendorAllBase     float64
	VendorSomeBase    float64
	VendorLengthBonus float64

	// Joined tags, two tiers only.
	TagsAllBase     float64
	TagsSomeBase    float64
	TagsLengthBonus float64

	// Product type, two tiers only.
	TypeAllBase     float64
	TypeSomeBase    float64
	TypeLengthBonus float64

	// Artist adjustments, independent of the field tiers above.
	ArtistExact     float64
	ArtistSubstring float64
	ArtistAllTokens float64
	ArtistSomeToken float64

	// Penalties.
	VariousArtistPenalty float64
	MissingArtistPenalty float64

	// LengthNorm is the field length at which the length bonus reaches zero.
	LengthNorm float64
}

// DefaultWeights returns the tuned production constants.
func DefaultWeights() Weights {
	return Weights{
		TitleExactBase:   1000,
		TitleAllBase:     800,
		TitleSomeBase:    400,
		TitleExactOccur:  0.5,
		TitleAllOccur:    0.3,
		TitleSomeOccur:   0.2,
		TitleLengthBonus: 200,

		VendorExactBase:   500,
		VendorAllBase:     300,
		VendorSomeBase:    150,
		VendorLengthBonus: 100,

		TagsAllBase:     300,
		TagsSomeBase:    150,
		TagsLengthBonus: 50,

		TypeAllBase:     200,
		TypeSomeBase:    100,
		TypeLengthBonus: 30,

		ArtistExact:     1500,
		ArtistSubstring: 800,
		ArtistAllTokens: 600,
		ArtistSomeToken: 300,

		VariousArtistPenalty: -400,
		MissingArtistPenalty: -30,

		LengthNorm: 200,
	}
}

// Ranker scores and orders search results.
type Ranker struct {
	weights Weights
}

// New creates a ranker with the given weights.
func New(weights Weights) *Ranker {
	return &Ranker{weights: weights}
}

// Rank returns the records ordered by descending score, ties broken by
// ascending case-insensitive title. The input slice is not modified.
// The order is total and deterministic for identical inputs.
func (rk *Ranker) Rank(records []*domain.Record, searchTerms string) []*domain.Record {
	q := newQuery(searchTerms)
	if q.full == "" {
		return slices.Clone(records)
	}

	type scored struct {
		rec   *domain.Record
		score float64
		title string
	}

	rows := make([]scored, len(records))
	for i, rec := range records {
		rows[i] = scored{
			rec:   rec,
			score: rk.score(rec, q),
			title: strings.ToLower(rec.Title),
		}
	}

	slices.SortStableFunc(rows, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return strings.Compare(a.title, b.title)
		}
	})

	out := make([]*domain.Record, len(rows))
	for i := range rows {
		out[i] = rows[i].rec
	}
	return out
}

// Score exposes the scalar score for one record, mainly for tests and
// debug instrumentation.
func (rk *Ranker) Score(rec *domain.Record, searchTerms string) float64 {
	return rk.score(rec, newQuery(searchTerms))
}

// query is the tokenized, lowercased form of the search terms.
type query struct {
	full   string
	tokens []string
}

func newQuery(searchTerms string) query {
	full := strings.ToLower(strings.TrimSpace(searchTerms))
	return query{full: full, tokens: strings.Fields(full)}
}

func (rk *Ranker) score(rec *domain.Record, q query) float64 {
	w := rk.weights
	var s float64

	s += rk.fieldScore(rec.Title, q, w.TitleExactBase, w.TitleAllBase, w.TitleSomeBase, w.TitleLengthBonus)
	s += rk.fieldScore(rec.Vendor, q, w.VendorExactBase, w.VendorAllBase, w.VendorSomeBase, w.VendorLengthBonus)
	s += rk.fieldScore(strings.Join(rec.Tags, " "), q, 0, w.TagsAllBase, w.TagsSomeBase, w.TagsLengthBonus)
	s += rk.fieldScore(rec.ProductType, q, 0, w.TypeAllBase, w.TypeSomeBase, w.TypeLengthBonus)
	s += rk.artistScore(rec, q)

	return s
}

// fieldScore computes one field's tiered contribution. An exactBase of
// zero disables the full-substring tier (tags and product type are
// two-tier fields).
func (rk *Ranker) fieldScore(field string, q query, exactBase, allBase, someBase, lengthBonus float64) float64 {
	if field == "" {
		return 0
	}
	w := rk.weights
	f := strings.ToLower(field)

	var s float64
	switch {
	case exactBase > 0 && strings.Contains(f, q.full):
		occ := float64(strings.Count(f, q.full))
		s = exactBase * (1 + occ*w.TitleExactOccur)
	case allTokensPresent(f, q.tokens):
		s = allBase * (1 + tokenOccurrences(f, q.tokens)*w.TitleAllOccur)
	case someTokensPresent(f, q.tokens):
		s = someBase * (1 + tokenOccurrences(f, q.tokens)*w.TitleSomeOccur)
	default:
		return 0
	}

	// Shorter fields are likelier to be about the query than merely
	// mentioning it.
	lengthFactor := 1 - float64(len(f))/w.LengthNorm
	if lengthFactor > 0 {
		s += lengthBonus * lengthFactor
	}
	return s
}

// artistScore applies the artist-match adjustments and penalties.
func (rk *Ranker) artistScore(rec *domain.Record, q query) float64 {
	w := rk.weights

	artist := domain.NormalizeKeyPart(rec.Artist)
	if artist == "" {
		return w.MissingArtistPenalty
	}

	var s float64
	switch {
	case artist == q.full:
		s = w.ArtistExact
	case strings.Contains(artist, q.full) || strings.Contains(q.full, artist):
		s = w.ArtistSubstring
	case allTokensPresent(artist, q.tokens):
		s = w.ArtistAllTokens
	case someTokensPresent(artist, q.tokens):
		s = w.ArtistSomeToken
	}

	// Compilations match broadly on title words; demote them.
	if strings.HasPrefix(artist, "various") {
		s += w.VariousArtistPenalty
	}

	return s
}

func allTokensPresent(field string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !strings.Contains(field, tok) {
			return false
		}
	}
	return true
}

func someTokensPresent(field string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(field, tok) {
			return true
		}
	}
	return false
}

func tokenOccurrences(field string, tokens []string) float64 {
	var n int
	for _, tok := range tokens {
		n += strings.Count(field, tok)
	}
	return float64(n)
}
