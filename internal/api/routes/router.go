package routes

import (
	"net/http"
	"strconv"

	"github.com/zatekoja/facetedsearch/internal/api/handlers"
	"github.com/zatekoja/facetedsearch/internal/api/middleware"
	"github.com/zatekoja/facetedsearch/internal/application/services"
	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
	"github.com/zatekoja/facetedsearch/pkg/config"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler    *handlers.SearchHandler
	analyticsHandler *handlers.AnalyticsHandler

	cacheMiddleware *middleware.CacheMiddleware
	invalidation    *services.CacheInvalidationService
	rateLimiter     *middleware.RateLimiter
	cached          http.Handler
	metrics         *observability.Metrics
	server          config.ServerConfig
	cacheTTLSeconds int
}

// NewRouter creates a new router. analyticsHandler, cacheMiddleware and
// invalidation may be nil.
func NewRouter(
	searchHandler *handlers.SearchHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	invalidation *services.CacheInvalidationService,
	metrics *observability.Metrics,
	server config.ServerConfig,
	cacheTTLSeconds int,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		searchHandler:    searchHandler,
		analyticsHandler: analyticsHandler,
		cacheMiddleware:  cacheMiddleware,
		invalidation:     invalidation,
		rateLimiter:      middleware.NewRateLimiter(server.RateLimitRPS, server.RateLimitBurst, server.TrustedProxies),
		metrics:          metrics,
		server:           server,
		cacheTTLSeconds:  cacheTTLSeconds,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Search endpoints
	r.mux.HandleFunc("GET /api/search", r.searchHandler.Search)
	r.mux.HandleFunc("GET /api/facets/{field}", r.searchHandler.Facet)

	// Analytics endpoints
	if r.analyticsHandler != nil {
		r.mux.HandleFunc("GET /api/analytics/zero-results", r.analyticsHandler.ZeroResults)
		r.mux.HandleFunc("GET /api/analytics/top-keywords", r.analyticsHandler.TopKeywords)
	}

	// Cache administration
	if r.cacheMiddleware != nil {
		r.mux.HandleFunc("POST /api/cache/flush", r.flushCache)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	r.cached = handler

	// Logging wraps the cache so hits are logged too
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = r.rateLimiter.Middleware(handler)

	// Apply HTTP performance optimizations (compression, ETag, cache headers)
	handler = middleware.ResponseOptimization(r.cacheTTLSeconds)(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.server.AllowedOrigins)(handler)

	return handler
}

func (r *Router) flushCache(w http.ResponseWriter, req *http.Request) {
	removed, err := r.cacheMiddleware.InvalidateCache(req)
	if err == nil && r.invalidation != nil {
		err = r.invalidation.Announce(req.Context(), entities.IndexEventCacheFlush)
	}
	if err != nil {
		observability.LoggerFromContext(req.Context()).Error().Err(err).Msg("failed to flush response cache")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to flush cache"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"removed":` + strconv.Itoa(removed) + `}`))
}

// CachedHandler serves routes through the response cache only, bypassing
// rate limiting and CORS. SetupRoutes must be called first.
func (r *Router) CachedHandler() http.Handler {
	return r.cached
}
