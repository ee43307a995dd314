package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cratestack/cratestack-server/internal/catalog"
	"github.com/cratestack/cratestack-server/internal/enhancer"
	"github.com/cratestack/cratestack-server/internal/facet"
	"github.com/cratestack/cratestack-server/internal/render"
)

func (s *Server) registerEnhanceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "enhance-collection",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{handle}/enhanced",
		Summary:     "Enhanced collection",
		Description: "Fetches a collection and returns its products grouped by release",
		Tags:        []string{"Enhance"},
	}, s.handleEnhanceCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "enhance-search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/enhanced",
		Summary:     "Enhanced search",
		Description: "Runs a relevance-ranked product search and returns results grouped by release",
		Tags:        []string{"Enhance"},
	}, s.handleEnhanceSearch)
}

// === DTOs ===

// FacetInput carries the recognized facet filters. Values accept both
// repeated keys and comma-joined lists.
type FacetInput struct {
	ProductTypes     []string `query:"productType" validate:"omitempty,max=20" doc:"Physical format facets (LP, CD, 7\", ...)"`
	PriceMin         string   `query:"priceMin" validate:"omitempty,max=20" doc:"Minimum price"`
	PriceMax         string   `query:"priceMax" validate:"omitempty,max=20" doc:"Maximum price"`
	StyleGenres      []string `query:"styleGenre" validate:"omitempty,max=20" doc:"Genre facets"`
	MediaConditions  []string `query:"mediaCondition" validate:"omitempty,max=20" doc:"Media condition facets"`
	SleeveConditions []string `query:"sleeveCondition" validate:"omitempty,max=20" doc:"Sleeve condition facets"`
}

// params rebuilds the facet selection through the translator so that
// comma-joined values and validation stay in one place.
func (f FacetInput) params() facet.Params {
	values := url.Values{
		"productType":     f.ProductTypes,
		"styleGenre":      f.StyleGenres,
		"mediaCondition":  f.MediaConditions,
		"sleeveCondition": f.SleeveConditions,
	}
	if f.PriceMin != "" {
		values.Set("priceMin", f.PriceMin)
	}
	if f.PriceMax != "" {
		values.Set("priceMax", f.PriceMax)
	}
	return facet.Parse(values)
}

// EnhanceCollectionInput contains parameters for enhancing a collection.
type EnhanceCollectionInput struct {
	Handle string `path:"handle" validate:"required,min=1,max=128" doc:"Collection handle"`
	FacetInput
}

// EnhanceSearchInput contains parameters for an enhanced search.
type EnhanceSearchInput struct {
	Query string `query:"q" required:"true" validate:"required,min=1,max=200" doc:"Search terms"`
	FacetInput
}

// EnhanceResponse contains the grouped result cards and run statistics.
type EnhanceResponse struct {
	Mode    string             `json:"mode" doc:"collection or search"`
	Partial bool               `json:"partial" doc:"True when a mid-pagination failure truncated the result set"`
	Count   int                `json:"count" doc:"Number of result cards"`
	Cards   []*render.Card     `json:"cards" doc:"Rendered result cards in presentation order"`
	Stats   *enhancer.RunStats `json:"stats" doc:"Run statistics"`
}

// EnhanceOutput wraps the enhance response for Huma.
type EnhanceOutput struct {
	Body EnhanceResponse
}

// === Handlers ===

func (s *Server) handleEnhanceCollection(ctx context.Context, input *EnhanceCollectionInput) (*EnhanceOutput, error) {
	if err := s.validate.Validate(input); err != nil {
		return nil, err
	}
	return s.runEnhancement(ctx, enhancer.Request{
		Mode:   catalog.ModeCollection,
		Handle: input.Handle,
		Facets: input.params(),
	})
}

func (s *Server) handleEnhanceSearch(ctx context.Context, input *EnhanceSearchInput) (*EnhanceOutput, error) {
	if err := s.validate.Validate(input); err != nil {
		return nil, err
	}
	return s.runEnhancement(ctx, enhancer.Request{
		Mode:   catalog.ModeSearch,
		Query:  input.Query,
		Facets: input.params(),
	})
}

// runEnhancement executes one full pipeline run for a request. Each
// HTTP request is its own session with its own sink; the single-flight
// guard protects a session, not the server.
func (s *Server) runEnhancement(ctx context.Context, req enhancer.Request) (*EnhanceOutput, error) {
	sink := render.NewMemorySink()
	e := enhancer.New(s.source, s.renderer, s.ranker, s.cfg, s.sseManager, s.sseManager, s.logger)

	stats, err := e.Enhance(ctx, req, sink)
	if err != nil {
		s.logger.WithError(err).Warn("enhancement run failed",
			"mode", string(req.Mode), "handle", req.Handle, "query", req.Query)
		return nil, err
	}

	cards := sink.Cards()
	return &EnhanceOutput{Body: EnhanceResponse{
		Mode:    string(req.Mode),
		Partial: stats.Partial,
		Count:   len(cards),
		Cards:   cards,
		Stats:   stats,
	}}, nil
}
