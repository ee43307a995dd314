package providers

import (
	"github.com/samber/do/v2"

	"github.com/cratestack/cratestack-server/internal/config"
	"github.com/cratestack/cratestack-server/internal/logger"
	"github.com/cratestack/cratestack-server/internal/rank"
	"github.com/cratestack/cratestack-server/internal/render"
)

// ProvideCardRenderer provides the HTML card template renderer.
func ProvideCardRenderer(i do.Injector) (*render.TemplateCardRenderer, error) {
	return render.NewTemplateCardRenderer()
}

// ProvideRenderer provides the chunked result renderer.
func ProvideRenderer(i do.Injector) (*render.Renderer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cards := do.MustInvoke[*render.TemplateCardRenderer](i)

	return render.New(cards, render.Options{
		InitialBatch: cfg.Enhancer.InitialRenderBatch,
		SteadyBatch:  cfg.Enhancer.SteadyRenderBatch,
		Concurrency:  cfg.Enhancer.RenderConcurrency,
	}, log), nil
}

// ProvideRanker provides the search relevance ranker.
func ProvideRanker(i do.Injector) (*rank.Ranker, error) {
	return rank.New(rank.DefaultWeights()), nil
}
