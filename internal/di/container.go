// Package di provides dependency injection configuration for the Cratestack server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/cratestack/cratestack-server/internal/config"
	"github.com/cratestack/cratestack-server/internal/di/providers"
	"github.com/cratestack/cratestack-server/internal/logger"
	"github.com/cratestack/cratestack-server/internal/rank"
	"github.com/cratestack/cratestack-server/internal/render"
	"github.com/cratestack/cratestack-server/internal/sse"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Catalog layer
	do.Provide(injector, providers.ProvideCatalogCache)
	do.Provide(injector, providers.ProvideCatalogClient)

	// Enhancement pipeline
	do.Provide(injector, providers.ProvideCardRenderer)
	do.Provide(injector, providers.ProvideRenderer)
	do.Provide(injector, providers.ProvideRanker)

	// Event stream
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideSSEHandler)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.CatalogClientHandle](injector)
	_ = do.MustInvoke[*render.TemplateCardRenderer](injector)
	_ = do.MustInvoke[*render.Renderer](injector)
	_ = do.MustInvoke[*rank.Ranker](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*sse.Handler](injector)
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
