package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
)

// WarmingHeader marks requests issued by the cache warmer so they are not
// tracked as user searches
const WarmingHeader = "X-Cache-Warming"

// CacheWarmingService replays the most searched keywords through the HTTP
// handler so their responses are cached before users ask for them.
type CacheWarmingService struct {
	analytics *SearchAnalyticsService
	handler   http.Handler
	limit     int
}

// NewCacheWarmingService creates a new cache warming service. handler must
// include the response cache.
func NewCacheWarmingService(analytics *SearchAnalyticsService, handler http.Handler, limit int) *CacheWarmingService {
	if limit <= 0 {
		limit = 20
	}
	return &CacheWarmingService{
		analytics: analytics,
		handler:   handler,
		limit:     limit,
	}
}

// WarmCache searches each top keyword once, returning how many succeeded
func (s *CacheWarmingService) WarmCache(ctx context.Context) (int, error) {
	logger := observability.LoggerFromContext(ctx)

	stats, err := s.analytics.GetTopKeywords(ctx, s.limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch top keywords: %w", err)
	}

	warmed := 0
	for _, stat := range stats {
		if stat.Keywords == "" {
			continue
		}
		target := "/api/search?" + url.Values{"q": {stat.Keywords}}.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			logger.Warn().Err(err).Str("keywords", stat.Keywords).Msg("failed to build warming request")
			continue
		}
		req.Header.Set(WarmingHeader, "1")

		rec := &discardResponse{header: make(http.Header), statusCode: http.StatusOK}
		s.handler.ServeHTTP(rec, req)
		if rec.statusCode != http.StatusOK {
			logger.Warn().Int("status", rec.statusCode).Str("keywords", stat.Keywords).Msg("warming search failed")
			continue
		}
		warmed++
	}

	logger.Info().Int("warmed", warmed).Int("keywords", len(stats)).Msg("cache warming completed")
	return warmed, nil
}

// StartPeriodicWarming starts a background goroutine that periodically warms the cache
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	logger := observability.LoggerFromContext(ctx)

	go func() {
		if _, err := s.WarmCache(ctx); err != nil {
			logger.Warn().Err(err).Msg("initial cache warming failed")
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("stopping cache warming service")
				return
			case <-ticker.C:
				if _, err := s.WarmCache(ctx); err != nil {
					logger.Warn().Err(err).Msg("periodic cache warming failed")
				}
			}
		}
	}()
	logger.Info().Dur("interval", interval).Msg("started periodic cache warming")
}

// discardResponse keeps only the status of a warming request
type discardResponse struct {
	header     http.Header
	statusCode int
	written    bool
}

func (r *discardResponse) Header() http.Header {
	return r.header
}

func (r *discardResponse) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.written = true
	}
}

func (r *discardResponse) Write(data []byte) (int, error) {
	r.written = true
	return len(data), nil
}
