package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facetedsearch/internal/application/services"
	"github.com/zatekoja/facetedsearch/internal/domain/entities"
)

type MockSearchAnalyticsRepository struct {
	mock.Mock
}

func (m *MockSearchAnalyticsRepository) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockSearchAnalyticsRepository) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SearchEvent), args.Error(1)
}

func (m *MockSearchAnalyticsRepository) GetTopKeywords(ctx context.Context, limit int) ([]*entities.SearchStat, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SearchStat), args.Error(1)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tracking did not finish")
	}
}

func TestSearchAnalyticsService_TrackSearch(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())
	backend.On("Clean", "safari").Return("safari")
	backend.On("Execute", mock.Anything, mock.Anything).Return(facetResult(services.GapMonthDescriptor), nil)

	result, err := searcher.Search(context.Background(), services.SearchRequest{
		Keywords: "safari",
		Filters:  map[string]string{"region": "Africa"},
	})
	require.NoError(t, err)

	event := services.NewSearchEvent(searcher, result, 35*time.Millisecond)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "safari", event.Keywords)
	assert.Equal(t, map[string]string{"region": "Africa"}, event.Filters)
	assert.Equal(t, 42, event.ResultCount)
	assert.Equal(t, 35, event.LatencyMs)

	t.Run("stores the event", func(t *testing.T) {
		repo := new(MockSearchAnalyticsRepository)
		repo.On("LogEvent", mock.Anything, event).Return(nil)

		service := services.NewSearchAnalyticsService(repo)
		waitDone(t, service.TrackSearch(context.Background(), event))

		repo.AssertExpectations(t)
	})

	t.Run("repository failure does not surface", func(t *testing.T) {
		repo := new(MockSearchAnalyticsRepository)
		repo.On("LogEvent", mock.Anything, event).Return(errors.New("db down"))

		service := services.NewSearchAnalyticsService(repo)
		waitDone(t, service.TrackSearch(context.Background(), event))

		repo.AssertExpectations(t)
	})
}

func TestSearchAnalyticsService_Reports(t *testing.T) {
	repo := new(MockSearchAnalyticsRepository)
	service := services.NewSearchAnalyticsService(repo)

	zero := []*entities.SearchEvent{{Keywords: "atlantis"}}
	top := []*entities.SearchStat{{Keywords: "safari", Searches: 12}}
	repo.On("GetZeroResultQueries", mock.Anything, 10).Return(zero, nil)
	repo.On("GetTopKeywords", mock.Anything, 5).Return(top, nil)

	events, err := service.GetZeroResultQueries(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, zero, events)

	stats, err := service.GetTopKeywords(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, top, stats)
}
