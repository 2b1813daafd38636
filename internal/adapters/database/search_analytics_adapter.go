package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/domain/repositories"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
)

const (
	searchEventsTable = "search_events"
	defaultStatsLimit = 100
)

const createSearchEventsTable = `
CREATE TABLE IF NOT EXISTS search_events (
	id           UUID PRIMARY KEY,
	keywords     TEXT NOT NULL DEFAULT '',
	filters      JSONB NOT NULL DEFAULT '{}',
	order_by     TEXT NOT NULL DEFAULT '',
	result_count INTEGER NOT NULL,
	latency_ms   INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
)`

// SearchAnalyticsAdapter implements SearchAnalyticsRepository
type SearchAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchAnalyticsAdapter creates a new search analytics adapter
func NewSearchAnalyticsAdapter(client *postgres.Client) *SearchAnalyticsAdapter {
	return &SearchAnalyticsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.SearchAnalyticsRepository = (*SearchAnalyticsAdapter)(nil)

// EnsureSchema creates the events table when missing
func (a *SearchAnalyticsAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, createSearchEventsTable); err != nil {
		return apperrors.NewInternalError("failed to create search events table", err)
	}
	return nil
}

// LogEvent stores one executed search
func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	filters := event.Filters
	if filters == nil {
		filters = map[string]string{}
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return apperrors.NewInternalError("failed to encode search filters", err)
	}

	record := goqu.Record{
		"id":           event.ID,
		"keywords":     event.Keywords,
		"filters":      string(filtersJSON),
		"order_by":     event.OrderBy,
		"result_count": event.ResultCount,
		"latency_ms":   event.LatencyMs,
		"created_at":   event.CreatedAt,
	}

	query, args, err := a.db.Insert(searchEventsTable).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}

	return nil
}

// GetZeroResultQueries returns the most recent searches that matched nothing
func (a *SearchAnalyticsAdapter) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	if limit <= 0 {
		limit = defaultStatsLimit
	}

	query, args, err := a.db.Select(
		"id", "keywords", "filters", "order_by", "result_count", "latency_ms", "created_at",
	).From(searchEventsTable).
		Where(goqu.Ex{"result_count": 0}).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	defer rows.Close()

	var events []*entities.SearchEvent
	for rows.Next() {
		e := &entities.SearchEvent{}
		var filters []byte
		err := rows.Scan(
			&e.ID,
			&e.Keywords,
			&filters,
			&e.OrderBy,
			&e.ResultCount,
			&e.LatencyMs,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan search event", err)
		}
		if len(filters) > 0 {
			if err := json.Unmarshal(filters, &e.Filters); err != nil {
				return nil, apperrors.NewInternalError("failed to decode search filters", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate search events", err)
	}

	return events, nil
}

// GetTopKeywords returns the most searched keywords with their average result count
func (a *SearchAnalyticsAdapter) GetTopKeywords(ctx context.Context, limit int) ([]*entities.SearchStat, error) {
	if limit <= 0 {
		limit = defaultStatsLimit
	}

	query, args, err := a.db.From(searchEventsTable).
		Select(
			goqu.C("keywords"),
			goqu.COUNT("*").As("searches"),
			goqu.AVG("result_count").As("avg_result_count"),
		).
		Where(goqu.C("keywords").Neq("")).
		GroupBy("keywords").
		Order(goqu.I("searches").Desc(), goqu.C("keywords").Asc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get top keywords", err)
	}
	defer rows.Close()

	var stats []*entities.SearchStat
	for rows.Next() {
		s := &entities.SearchStat{}
		if err := rows.Scan(&s.Keywords, &s.Searches, &s.AvgResultCount); err != nil {
			return nil, apperrors.NewInternalError("failed to scan keyword stat", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate keyword stats", err)
	}

	return stats, nil
}
