package repositories

import (
	"context"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
)

// SearchAnalyticsRepository stores executed searches
type SearchAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.SearchEvent) error
	GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
	GetTopKeywords(ctx context.Context, limit int) ([]*entities.SearchStat, error)
}
