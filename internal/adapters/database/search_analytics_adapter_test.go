package database_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/facetedsearch/internal/adapters/database"
	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
)

func setupMockDB(t *testing.T) (*database.SearchAnalyticsAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewSearchAnalyticsAdapter(postgres.NewClientFromDB(db)), mock
}

func TestSearchAnalyticsAdapter_LogEvent(t *testing.T) {
	adapter, mock := setupMockDB(t)
	createdAt := time.Date(2012, 12, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "search_events"`)).
		WithArgs(sqlmock.AnyArg(), `{"country":"Kenya"}`, "evt-1", "safari", 12, "-price", 3).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := adapter.LogEvent(context.Background(), &entities.SearchEvent{
		ID:          "evt-1",
		Keywords:    "safari",
		Filters:     map[string]string{"country": "Kenya"},
		OrderBy:     "-price",
		ResultCount: 3,
		LatencyMs:   12,
		CreatedAt:   createdAt,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchAnalyticsAdapter_LogEventAssignsIDAndTime(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "search_events"`)).
		WithArgs(sqlmock.AnyArg(), "{}", sqlmock.AnyArg(), "", 0, "", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &entities.SearchEvent{}
	err := adapter.LogEvent(context.Background(), event)

	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchAnalyticsAdapter_LogEventFailure(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "search_events"`)).
		WillReturnError(errors.New("connection reset"))

	err := adapter.LogEvent(context.Background(), &entities.SearchEvent{ID: "evt-1"})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestSearchAnalyticsAdapter_GetZeroResultQueries(t *testing.T) {
	adapter, mock := setupMockDB(t)
	createdAt := time.Date(2012, 12, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "search_events"`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "keywords", "filters", "order_by", "result_count", "latency_ms", "created_at",
		}).
			AddRow("evt-1", "antarctica cycling", []byte(`{"region":"Antarctica"}`), "", 0, 8, createdAt).
			AddRow("evt-2", "", []byte(nil), "name", 0, 5, createdAt))

	events, err := adapter.GetZeroResultQueries(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "antarctica cycling", events[0].Keywords)
	assert.Equal(t, map[string]string{"region": "Antarctica"}, events[0].Filters)
	assert.Equal(t, 8, events[0].LatencyMs)
	assert.Nil(t, events[1].Filters)
	assert.Equal(t, "name", events[1].OrderBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchAnalyticsAdapter_GetTopKeywords(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY "keywords"`)).
		WillReturnRows(sqlmock.NewRows([]string{"keywords", "searches", "avg_result_count"}).
			AddRow("safari", 10, 4.5).
			AddRow("walking", 3, 12.0))

	stats, err := adapter.GetTopKeywords(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, &entities.SearchStat{Keywords: "safari", Searches: 10, AvgResultCount: 4.5}, stats[0])
	assert.Equal(t, "walking", stats[1].Keywords)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchAnalyticsAdapter_QueryFailure(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "search_events"`)).
		WillReturnError(errors.New("relation does not exist"))

	_, err := adapter.GetZeroResultQueries(context.Background(), 5)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestSearchAnalyticsAdapter_EnsureSchema(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS search_events`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adapter.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
