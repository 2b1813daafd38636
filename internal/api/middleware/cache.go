package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/zatekoja/facetedsearch/internal/domain/providers"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
)

// CacheKeyPrefix namespaces every cached HTTP response
const CacheKeyPrefix = "http:cache:"

// CacheConfig holds cache configuration for specific routes
type CacheConfig struct {
	TTLSeconds int
	Enabled    bool
}

// CacheMiddleware provides HTTP response caching. Concurrent misses for the
// same key share a single handler run.
type CacheMiddleware struct {
	cache        providers.CacheProvider
	metrics      *observability.Metrics
	routeConfigs map[string]CacheConfig
	group        singleflight.Group
}

// NewCacheMiddleware caches the search and facet endpoints for ttlSeconds
func NewCacheMiddleware(cache providers.CacheProvider, metrics *observability.Metrics, ttlSeconds int) *CacheMiddleware {
	return CacheMiddlewareWithConfig(cache, metrics, map[string]CacheConfig{
		"/api/search":  {TTLSeconds: ttlSeconds, Enabled: ttlSeconds > 0},
		"/api/facets/": {TTLSeconds: ttlSeconds, Enabled: ttlSeconds > 0}, // prefix match
	})
}

// CacheMiddlewareWithConfig creates a cache middleware with custom route config
func CacheMiddlewareWithConfig(cache providers.CacheProvider, metrics *observability.Metrics, configs map[string]CacheConfig) *CacheMiddleware {
	return &CacheMiddleware{
		cache:        cache,
		metrics:      metrics,
		routeConfigs: configs,
	}
}

// cachedResponse is what one handler run produced
type cachedResponse struct {
	statusCode  int
	contentType string
	body        []byte
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		route, config := m.getRouteConfig(r.URL.Path)
		if !config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		logger := observability.LoggerFromContext(ctx)
		cacheKey := m.generateCacheKey(r)

		if cached, err := m.cache.Get(ctx, cacheKey); err == nil {
			logger.Debug().Str("key", cacheKey).Msg("cache hit")
			observability.RecordCacheHit(ctx, m.metrics, route)
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}

		logger.Debug().Str("key", cacheKey).Msg("cache miss")
		observability.RecordCacheMiss(ctx, m.metrics, route)

		v, _, shared := m.group.Do(cacheKey, func() (interface{}, error) {
			rec := newBufferedResponse()
			next.ServeHTTP(rec, r)

			resp := &cachedResponse{
				statusCode:  rec.statusCode,
				contentType: rec.header.Get("Content-Type"),
				body:        rec.body.Bytes(),
			}
			if resp.statusCode == http.StatusOK && len(resp.body) > 0 {
				if err := m.cache.Set(ctx, cacheKey, resp.body, config.TTLSeconds); err != nil {
					logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache response")
				} else {
					logger.Debug().Str("key", cacheKey).Int("ttl_seconds", config.TTLSeconds).Msg("cached response")
				}
			}
			return resp, nil
		})
		resp := v.(*cachedResponse)

		if shared {
			w.Header().Set("X-Cache", "SHARED")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		if resp.contentType != "" {
			w.Header().Set("Content-Type", resp.contentType)
		}
		w.WriteHeader(resp.statusCode)
		w.Write(resp.body)
	})
}

// getRouteConfig gets the cache configuration and matched route for a path
func (m *CacheMiddleware) getRouteConfig(path string) (string, CacheConfig) {
	if config, exists := m.routeConfigs[path]; exists {
		return path, config
	}

	// Prefix match for dynamic routes (e.g., /api/facets/{field})
	for pattern, config := range m.routeConfigs {
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) {
			return pattern, config
		}
	}

	return path, CacheConfig{Enabled: false}
}

// generateCacheKey hashes method, path and the sorted query parameters, so
// parameter order never splits the cache.
func (m *CacheMiddleware) generateCacheKey(r *http.Request) string {
	key := fmt.Sprintf("%s:%s", r.Method, r.URL.Path)
	if query := r.URL.Query(); len(query) > 0 {
		key += "?" + query.Encode()
	}

	hash := sha256.Sum256([]byte(key))
	return CacheKeyPrefix + hex.EncodeToString(hash[:])
}

// InvalidateCache drops every cached response, returning how many were removed
func (m *CacheMiddleware) InvalidateCache(r *http.Request) (int, error) {
	if m.cache == nil {
		return 0, nil
	}
	removed, err := m.cache.DeletePattern(r.Context(), CacheKeyPrefix+"*")
	if err != nil {
		return removed, err
	}
	observability.LoggerFromContext(r.Context()).Info().Int("removed", removed).Msg("response cache flushed")
	return removed, nil
}

// bufferedResponse collects a handler's output without touching the client
type bufferedResponse struct {
	header     http.Header
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{
		header:     make(http.Header),
		statusCode: http.StatusOK,
		body:       &bytes.Buffer{},
	}
}

func (r *bufferedResponse) Header() http.Header {
	return r.header
}

// WriteHeader captures the status code
func (r *bufferedResponse) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.written = true
	}
}

// Write captures the response body
func (r *bufferedResponse) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(data)
}
