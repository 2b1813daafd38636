package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/domain/repositories"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
)

// SearchAnalyticsService records executed searches
type SearchAnalyticsService struct {
	repo    repositories.SearchAnalyticsRepository
	timeout time.Duration
}

// NewSearchAnalyticsService creates a new analytics service
func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository) *SearchAnalyticsService {
	return &SearchAnalyticsService{repo: repo, timeout: 5 * time.Second}
}

// NewSearchEvent describes a finished search for tracking
func NewSearchEvent(searcher *Searcher, result *entities.SearchResult, latency time.Duration) *entities.SearchEvent {
	return &entities.SearchEvent{
		ID:          uuid.New().String(),
		Keywords:    searcher.Keywords(),
		Filters:     searcher.CleanedFilters(),
		OrderBy:     searcher.OrderBy(),
		ResultCount: result.TotalCount,
		LatencyMs:   int(latency.Milliseconds()),
		CreatedAt:   time.Now().UTC(),
	}
}

// TrackSearch stores the event in the background. The returned channel is
// closed once the write finished.
func (s *SearchAnalyticsService) TrackSearch(ctx context.Context, event *entities.SearchEvent) <-chan struct{} {
	done := make(chan struct{})
	logger := observability.LoggerFromContext(ctx)

	go func() {
		defer close(done)

		// Fresh context since the request context is cancelled when the response is written
		bgCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.repo.LogEvent(bgCtx, event); err != nil {
			logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to log search event")
		}
	}()

	return done
}

// GetZeroResultQueries returns recent searches that matched nothing
func (s *SearchAnalyticsService) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	return s.repo.GetZeroResultQueries(ctx, limit)
}

// GetTopKeywords returns the most frequent keywords
func (s *SearchAnalyticsService) GetTopKeywords(ctx context.Context, limit int) ([]*entities.SearchStat, error) {
	return s.repo.GetTopKeywords(ctx, limit)
}
