package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/cratestack/cratestack-server/internal/api"
	"github.com/cratestack/cratestack-server/internal/config"
	"github.com/cratestack/cratestack-server/internal/logger"
	"github.com/cratestack/cratestack-server/internal/rank"
	"github.com/cratestack/cratestack-server/internal/ratelimit"
	"github.com/cratestack/cratestack-server/internal/render"
	"github.com/cratestack/cratestack-server/internal/sse"
)

const (
	// Per-IP request budget for the enhancement endpoints. Runs are
	// expensive (up to 20 catalog pages each), so the budget is tight.
	enhanceRPS   = 2.0
	enhanceBurst = 5
)

// RateLimiterHandle wraps the keyed rate limiter with shutdown capability.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the per-client rate limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	return &RateLimiterHandle{KeyedRateLimiter: ratelimit.New(enhanceRPS, enhanceBurst)}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	clientHandle := do.MustInvoke[*CatalogClientHandle](i)
	renderer := do.MustInvoke[*render.Renderer](i)
	ranker := do.MustInvoke[*rank.Ranker](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	sseHandler := do.MustInvoke[*sse.Handler](i)
	limiterHandle := do.MustInvoke[*RateLimiterHandle](i)

	handler := api.NewServer(clientHandle.Client, renderer, ranker, cfg.Enhancer, sseHandle.Manager, sseHandler, limiterHandle.KeyedRateLimiter, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
