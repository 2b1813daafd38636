package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facetedsearch/internal/application/services"
	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/pkg/config"
	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
)

// Mocks

type MockSearchBackend struct {
	mock.Mock
}

func (m *MockSearchBackend) Execute(ctx context.Context, query entities.SearchQuery) (*entities.SearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SearchResult), args.Error(1)
}

func (m *MockSearchBackend) IndexedFields() map[string]entities.IndexedField {
	args := m.Called()
	return args.Get(0).(map[string]entities.IndexedField)
}

func (m *MockSearchBackend) Clean(keywords string) string {
	args := m.Called(keywords)
	return args.String(0)
}

// Fixtures

func testFacetsConfig() *config.FacetsConfig {
	return &config.FacetsConfig{
		FieldFacets: []config.FieldFacetConfig{
			{Field: "region"},
			{Field: "promotion_GBP", Label: "Promotions"},
		},
		QueryFacets: []config.QueryFacetConfig{
			{Field: "duration", Queries: []string{"[* TO 5]", "[6 TO 10]", "[41 TO *]"}},
		},
		DateFacets: []config.DateFacetConfig{
			{Field: "departure_dates", LookAheadDays: 365, GapBy: "month", GapAmount: 1},
		},
		SortOptions: []config.SortOption{
			{Field: "priority", Label: "Relevance", Default: true},
			{Field: "byName", Label: "Trip Name (A-Z)"},
			{Field: "byName", Label: "Trip Name (Z-A)", Reverse: true},
		},
		SortOrder:       []string{"duration", "region", "departure_dates"},
		BaseURL:         "/trips",
		DefaultPageSize: 20,
	}
}

func testIndexedFields() map[string]entities.IndexedField {
	return map[string]entities.IndexedField{
		"region":          {Name: "region", Faceted: true},
		"country":         {Name: "country", Faceted: true},
		"promotion_GBP":   {Name: "promotion_GBP", Faceted: true},
		"duration":        {Name: "duration", Faceted: true},
		"departure_dates": {Name: "departure_dates", Faceted: true},
		"name":            {Name: "name"},
	}
}

func testFacetCounts(gap string) entities.FacetCounts {
	return entities.FacetCounts{
		Fields: map[string][]entities.FacetCount{
			"promotion_GBP": {{Value: "Sale", Count: 3}},
			"region":        {{Value: "Africa", Count: 10}, {Value: "South America", Count: 4}, {Value: "Asia", Count: 1}},
		},
		Queries: map[string]int{
			"duration_exact:[41 TO *]": 1,
			"duration_exact:[6 TO 10]": 5,
			"duration_exact:[* TO 5]":  2,
		},
		Dates: map[string]entities.DateFacetCounts{
			"departure_dates": {
				Counts: map[string]int{
					"2013-01-01T00:00:00Z": 12,
					"2012-04-24T18:17:03Z": 105,
					"2012-05-01T00:00:00Z": 323,
				},
				Gap: gap,
				End: "2013-02-01T00:00:00Z",
			},
		},
	}
}

func newTestSearcher(backend *MockSearchBackend, cfg *config.FacetsConfig) *services.Searcher {
	backend.On("IndexedFields").Return(testIndexedFields())
	return services.NewSearcher(backend, cfg)
}

func facetResult(gap string) *entities.SearchResult {
	return &entities.SearchResult{TotalCount: 42, FacetCounts: testFacetCounts(gap)}
}

// Tests

func TestSearcher_ResultAccessBeforeSearch(t *testing.T) {
	searcher := services.NewSearcher(new(MockSearchBackend), testFacetsConfig())

	_, err := searcher.URLParam()
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNoSearchPerformed))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePrecondition))

	_, err = searcher.Facets()
	assert.ErrorIs(t, err, services.ErrNoSearchPerformed)

	_, err = searcher.SortOptions()
	assert.ErrorIs(t, err, services.ErrNoSearchPerformed)

	_, err = searcher.Result()
	assert.ErrorIs(t, err, services.ErrNoSearchPerformed)
}

func TestSearcher_Search_BuildsQuery(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())

	backend.On("Clean", "safari").Return("safari")
	backend.On("Execute", mock.Anything, mock.MatchedBy(func(q entities.SearchQuery) bool {
		return assert.ObjectsAreEqual([]string{"region_exact:Africa"}, q.Narrows) &&
			q.Keywords == "safari" &&
			len(q.OrderBy) == 0 &&
			assert.ObjectsAreEqual([]string{"region", "promotion_GBP"}, q.FieldFacets) &&
			len(q.QueryFacets) == 3 &&
			len(q.DateFacets) == 1 &&
			q.DateFacets[0].GapBy == entities.GapMonth &&
			q.Rows == 20
	})).Return(facetResult(services.GapMonthDescriptor), nil)

	result, err := searcher.Search(context.Background(), services.SearchRequest{
		Filters: map[string]string{
			"q":       "safari",
			"region":  "Africa",
			"country": "",
			"bogus":   "DROP TABLE",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result.TotalCount)
	assert.Equal(t, map[string]string{"region": "Africa"}, searcher.CleanedFilters())
	assert.Equal(t, "safari", searcher.Keywords())

	param, err := searcher.URLParam()
	require.NoError(t, err)
	assert.Equal(t, "q=safari&region=Africa", param)

	backend.AssertExpectations(t)
}

func TestSearcher_Search_ParsesFieldFacets(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())
	backend.On("Execute", mock.Anything, mock.Anything).Return(facetResult(services.GapMonthDescriptor), nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{
		Filters: map[string]string{"region": "South America"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{`region_exact:South\ America`}, searcher.Query().Narrows)

	list, err := searcher.Facets()
	require.NoError(t, err)

	// field facets in configured order, then query, then date
	var fields []string
	for _, f := range list.Facets {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"region", "promotion_GBP", "duration", "departure_dates"}, fields)

	region, err := list.Get("region")
	require.NoError(t, err)
	assert.Equal(t, "Region", region.Label)
	assert.Equal(t, entities.KindField, region.Kind)

	selected, ok := region.Item("South America")
	require.True(t, ok)
	assert.True(t, selected.IsSelected)
	assert.Equal(t, "/trips", selected.BaseURL)

	africa, _ := region.Item("Africa")
	assert.False(t, africa.IsSelected)
	assert.Equal(t, "/trips?region=Africa", list.ItemURL(africa))
	assert.Equal(t, "/trips", list.ItemRemovalURL(selected))

	promotions, err := list.Get("promotion_GBP")
	require.NoError(t, err)
	assert.Equal(t, "Promotions", promotions.Label)
}

func TestSearcher_Search_ParsesQueryFacets(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())
	backend.On("Execute", mock.Anything, mock.Anything).Return(facetResult(services.GapMonthDescriptor), nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{
		Filters: map[string]string{"duration": "[6 TO 10]"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"duration_exact:[6 TO 10]"}, searcher.Query().Narrows)

	list, _ := searcher.Facets()
	duration, err := list.Get("duration")
	require.NoError(t, err)
	assert.Equal(t, entities.KindQuery, duration.Kind)

	var values, labels []string
	for _, item := range duration.Items {
		values = append(values, item.Value)
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"[* TO 5]", "[6 TO 10]", "[41 TO *]"}, values)
	assert.Equal(t, []string{"Less than 5", "6 to 10", "41 and up"}, labels)

	item, _ := duration.Item("[6 TO 10]")
	assert.True(t, item.IsSelected)
	assert.Equal(t, 5, item.Count)

	param, _ := searcher.URLParam()
	assert.Equal(t, "duration=%5B6+TO+10%5D", param)
}

func TestSearcher_Search_ParsesMonthDateFacets(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())
	backend.On("Execute", mock.Anything, mock.Anything).Return(facetResult(services.GapMonthDescriptor), nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{
		Filters: map[string]string{"departure_dates": "2012-05"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"departure_dates_exact:[2012-05-01T00:00:00Z TO 2012-05-31T23:59:59Z]"},
		searcher.Query().Narrows,
	)

	list, _ := searcher.Facets()
	dates, err := list.Get("departure_dates")
	require.NoError(t, err)
	assert.Equal(t, "Departure Dates", dates.Label)

	var values, labels []string
	for _, item := range dates.Items {
		values = append(values, item.Value)
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"2012-04", "2012-05", "2013-01"}, values)
	assert.Equal(t, []string{"April", "May", "January"}, labels)

	may, _ := dates.Item("2012-05")
	assert.True(t, may.IsSelected)
	assert.Equal(t, 2012, may.Year)
	assert.Equal(t, 323, may.Count)

	april, _ := dates.Item("2012-04")
	assert.False(t, april.IsSelected)
}

func TestSearcher_Search_MultiMonthGapSpansBucket(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())

	result := facetResult("+3MONTH/MONTH")
	result.FacetCounts.Dates["departure_dates"] = entities.DateFacetCounts{
		Counts: map[string]int{"2012-07-01T00:00:00Z": 20, "2012-04-01T00:00:00Z": 50},
		Gap:    "+3MONTH/MONTH",
	}
	backend.On("Execute", mock.Anything, mock.Anything).Return(result, nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{
		Filters: map[string]string{"departure_dates": "2012-04-01-2012-06-30"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"departure_dates_exact:[2012-04-01T00:00:00Z TO 2012-06-30T23:59:59Z]"},
		searcher.Query().Narrows,
	)

	list, _ := searcher.Facets()
	dates, err := list.Get("departure_dates")
	require.NoError(t, err)
	require.Len(t, dates.Items, 2)

	spring := dates.Items[0]
	assert.Equal(t, "2012-04-01-2012-06-30", spring.Value)
	assert.Equal(t, "Apr  1, 2012 to Jun 30, 2012", spring.Label)
	assert.True(t, spring.IsSelected)
	assert.Equal(t, 50, spring.Count)

	summer := dates.Items[1]
	assert.Equal(t, "2012-07-01-2012-09-30", summer.Value)
	assert.False(t, summer.IsSelected)
	assert.Equal(t, "/trips?departure_dates=2012-07-01-2012-09-30", list.ItemURL(summer))
}

func TestSearcher_Search_MultiYearGapSpansBucket(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())

	result := facetResult("+2YEARS/YEAR")
	result.FacetCounts.Dates["departure_dates"] = entities.DateFacetCounts{
		Counts: map[string]int{"2012-01-01T00:00:00Z": 9},
		Gap:    "+2YEARS/YEAR",
	}
	backend.On("Execute", mock.Anything, mock.Anything).Return(result, nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{})
	require.NoError(t, err)

	list, _ := searcher.Facets()
	dates, err := list.Get("departure_dates")
	require.NoError(t, err)
	require.Len(t, dates.Items, 1)
	assert.Equal(t, "2012-01-01-2013-12-31", dates.Items[0].Value)
	assert.Equal(t, 2012, dates.Items[0].Year)
}

func TestSearcher_Search_ParsesYearDateFacets(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())

	result := facetResult(services.GapYearDescriptor)
	result.FacetCounts.Dates["departure_dates"] = entities.DateFacetCounts{
		Counts: map[string]int{"2013-01-01T00:00:00Z": 7, "2012-01-01T00:00:00Z": 9},
		Gap:    services.GapYearDescriptor,
	}
	backend.On("Execute", mock.Anything, mock.Anything).Return(result, nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{})
	require.NoError(t, err)

	list, _ := searcher.Facets()
	dates, err := list.Get("departure_dates")
	require.NoError(t, err)
	require.Len(t, dates.Items, 2)
	assert.Equal(t, "2012-01", dates.Items[0].Value)
	assert.Equal(t, "2012", dates.Items[0].Label)
	assert.Equal(t, "2013", dates.Items[1].Label)
}

func TestSearcher_Search_NonFacetedFieldNarrowsPlainName(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())
	backend.On("Execute", mock.Anything, mock.Anything).Return(facetResult(services.GapMonthDescriptor), nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{
		Filters:     map[string]string{"name": "Kenya: Wildlife", "region": "Africa"},
		Constraints: []entities.Filter{{Field: "published", Value: "true"}},
	})
	require.NoError(t, err)

	q := searcher.Query()
	assert.Equal(t, []string{`name:Kenya\:\ Wildlife`, "region_exact:Africa"}, q.Narrows)
	assert.Equal(t, []entities.Filter{{Field: "published", Value: "true"}}, q.Filters)
}

func TestSearcher_Search_OrderResolution(t *testing.T) {
	tests := []struct {
		name          string
		cfg           func(*config.FacetsConfig)
		keywords      string
		orderBy       string
		wantQuery     []string
		wantURLParam  string
		wantSelection string
	}{
		{
			name:          "no order uses default",
			wantQuery:     []string{"priority"},
			wantURLParam:  "",
			wantSelection: "Relevance",
		},
		{
			name:          "explicit valid order",
			orderBy:       "-byName",
			wantQuery:     []string{"-byName"},
			wantURLParam:  "order_by=-byName",
			wantSelection: "Trip Name (Z-A)",
		},
		{
			name:          "invalid order falls back to default",
			orderBy:       "-priority",
			wantQuery:     []string{"priority"},
			wantURLParam:  "",
			wantSelection: "Relevance",
		},
		{
			name:          "keyword suppresses default order",
			keywords:      "trek",
			wantQuery:     nil,
			wantURLParam:  "q=trek",
			wantSelection: "Relevance",
		},
		{
			name:          "keyword keeps explicit order",
			keywords:      "trek",
			orderBy:       "byName",
			wantQuery:     []string{"byName"},
			wantURLParam:  "q=trek&order_by=byName",
			wantSelection: "Trip Name (A-Z)",
		},
		{
			name:          "keyword with default sort enabled",
			cfg:           func(c *config.FacetsConfig) { c.UseDefaultSortWithKeyword = true },
			keywords:      "trek",
			wantQuery:     []string{"priority"},
			wantURLParam:  "q=trek",
			wantSelection: "Relevance",
		},
		{
			name:          "no default configured means relevance",
			cfg:           func(c *config.FacetsConfig) { c.SortOptions[0].Default = false },
			wantQuery:     nil,
			wantURLParam:  "",
			wantSelection: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testFacetsConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			backend := new(MockSearchBackend)
			searcher := newTestSearcher(backend, cfg)
			backend.On("Clean", mock.Anything).Return(tt.keywords)
			backend.On("Execute", mock.Anything, mock.Anything).Return(&entities.SearchResult{}, nil)

			_, err := searcher.Search(context.Background(), services.SearchRequest{
				Keywords: tt.keywords,
				OrderBy:  tt.orderBy,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantQuery, searcher.Query().OrderBy)

			param, err := searcher.URLParam()
			require.NoError(t, err)
			assert.Equal(t, tt.wantURLParam, param)

			links, err := searcher.SortOptions()
			require.NoError(t, err)
			var selected []string
			for _, l := range links {
				if l.Selected {
					selected = append(selected, l.Label)
				}
			}
			if tt.wantSelection == "" {
				assert.Empty(t, selected)
			} else {
				assert.Equal(t, []string{tt.wantSelection}, selected)
			}
		})
	}
}

func TestSearcher_SortOptionURLs(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())
	backend.On("Execute", mock.Anything, mock.Anything).Return(facetResult(services.GapMonthDescriptor), nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{
		Filters: map[string]string{"region": "Africa"},
		OrderBy: "byName",
	})
	require.NoError(t, err)

	links, err := searcher.SortOptions()
	require.NoError(t, err)
	require.Len(t, links, 3)

	assert.Equal(t, entities.SortLink{URL: "?region=Africa", Label: "Relevance"}, links[0])
	assert.Equal(t, entities.SortLink{URL: "?order_by=byName&region=Africa", Label: "Trip Name (A-Z)", Selected: true}, links[1])
	assert.Equal(t, entities.SortLink{URL: "?order_by=-byName&region=Africa", Label: "Trip Name (Z-A)"}, links[2])
}

func TestSearcher_Search_Paging(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())
	backend.On("Execute", mock.Anything, mock.MatchedBy(func(q entities.SearchQuery) bool {
		return q.Start == 10 && q.Rows == 10
	})).Return(&entities.SearchResult{}, nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{Page: 2, PageSize: 10})
	require.NoError(t, err)
	backend.AssertExpectations(t)
}

func TestSearcher_Search_BackendFailure(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())
	backend.On("Execute", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := searcher.Search(context.Background(), services.SearchRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.Contains(t, err.Error(), "connection refused")

	// a failed search leaves results unavailable
	_, err = searcher.URLParam()
	assert.ErrorIs(t, err, services.ErrNoSearchPerformed)
}

func TestSearcher_Breadcrumbs(t *testing.T) {
	backend := new(MockSearchBackend)
	searcher := newTestSearcher(backend, testFacetsConfig())
	backend.On("Clean", "safari").Return("safari")
	backend.On("Execute", mock.Anything, mock.Anything).Return(facetResult(services.GapMonthDescriptor), nil)

	_, err := searcher.Search(context.Background(), services.SearchRequest{
		Keywords: "safari",
		Filters:  map[string]string{"region": "Africa", "duration": "[6 TO 10]"},
	})
	require.NoError(t, err)

	list, _ := searcher.Facets()
	crumbs := list.SelectedItems()
	require.Len(t, crumbs, 2)

	assert.Equal(t, "duration", crumbs[0].Field)
	assert.Equal(t, "/trips?q=safari&region=Africa", list.ItemRemovalURL(crumbs[0]))
	assert.Equal(t, "region", crumbs[1].Field)
	assert.Equal(t, "/trips?q=safari&duration=%5B6+TO+10%5D", list.ItemRemovalURL(crumbs[1]))
}
