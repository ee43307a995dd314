// Package api provides the HTTP API server and handlers for the Cratestack
// storefront enhancement service.
package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cratestack/cratestack-server/internal/config"
	"github.com/cratestack/cratestack-server/internal/enhancer"
	"github.com/cratestack/cratestack-server/internal/http/response"
	"github.com/cratestack/cratestack-server/internal/logger"
	"github.com/cratestack/cratestack-server/internal/rank"
	"github.com/cratestack/cratestack-server/internal/ratelimit"
	"github.com/cratestack/cratestack-server/internal/render"
	"github.com/cratestack/cratestack-server/internal/sse"
	"github.com/cratestack/cratestack-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	source     enhancer.Source
	renderer   *render.Renderer
	ranker     *rank.Ranker
	cfg        config.EnhancerConfig
	sseManager *sse.Manager
	sseHandler *sse.Handler
	limiter    *ratelimit.KeyedRateLimiter
	router     *chi.Mux
	api        huma.API
	validate   *validation.Validator
	logger     *logger.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(source enhancer.Source, renderer *render.Renderer, ranker *rank.Ranker, cfg config.EnhancerConfig, sseManager *sse.Manager, sseHandler *sse.Handler, limiter *ratelimit.KeyedRateLimiter, log *logger.Logger) *Server {
	s := &Server{
		source:     source,
		renderer:   renderer,
		ranker:     ranker,
		cfg:        cfg,
		sseManager: sseManager,
		sseHandler: sseHandler,
		limiter:    limiter,
		router:     chi.NewRouter(),
		validate:   validation.New(),
		logger:     log,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the underlying huma API, mainly for tests.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	// The service is consumed by storefront JS on another origin.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Progress event stream.
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)

	// Enhancement operations behind the per-IP limiter.
	s.router.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}

		RegisterErrorHandler()
		humaConfig := huma.DefaultConfig("Cratestack API", "1.0.0")
		humaConfig.DocsPath = ""
		s.api = humachi.New(r, humaConfig)

		s.registerEnhanceRoutes()
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]any{
		"status":      "healthy",
		"sse_clients": s.sseManager.ClientCount(),
		"run_active":  s.sseManager.IsRunning(),
	}, s.logger.Logger)
}
