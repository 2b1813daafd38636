package services

import (
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/domain/repositories"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
	"github.com/zatekoja/facetedsearch/pkg/config"
	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
	"github.com/zatekoja/facetedsearch/pkg/utils"
)

// KeywordParam carries the full-text keywords in URLs
const KeywordParam = "q"

// ErrNoSearchPerformed is returned by result accessors before Search completes
var ErrNoSearchPerformed = apperrors.NewPreconditionError("no search has been performed")

// SearchRequest holds the decoded parameters of one search
type SearchRequest struct {
	// Filters maps field to value, typically the request's query parameters
	Filters  map[string]string
	Keywords string
	// OrderBy is a sort field, '-' prefixed for descending
	OrderBy string
	// Constraints are applied as-is on top of user filters
	Constraints []entities.Filter
	Page        int
	PageSize    int
}

// Searcher runs one faceted search against a backend and holds its results.
// A Searcher is request-scoped and not safe for concurrent use.
type Searcher struct {
	backend repositories.SearchBackend
	cfg     *config.FacetsConfig
	now     func() time.Time

	query          entities.SearchQuery
	result         *entities.SearchResult
	facets         *entities.FacetList
	filters        map[string]string
	keywords       string
	orderBy        string
	explicitOrder  bool
	searchExecuted bool
}

// NewSearcher creates a searcher bound to backend and the facet tables
func NewSearcher(backend repositories.SearchBackend, cfg *config.FacetsConfig) *Searcher {
	return &Searcher{
		backend: backend,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Search narrows a query by the request, asks the backend for results and
// facet counts, and parses the counts into a FacetList.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*entities.SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "Searcher.Search")
	defer span.End()

	logger := observability.LoggerFromContext(ctx)
	logger.Debug().Interface("filters", req.Filters).Msg("searching with filters")

	s.searchExecuted = false
	s.filters = s.cleanFilters(req.Filters)

	s.keywords = req.Keywords
	if s.keywords == "" {
		s.keywords = req.Filters[KeywordParam]
	}

	s.orderBy, s.explicitOrder = s.resolveOrder(ctx, req.OrderBy)
	if s.keywords != "" && !s.cfg.UseDefaultSortWithKeyword && req.OrderBy == "" {
		s.orderBy = ""
	}

	q := entities.NewSearchQuery()
	for _, c := range req.Constraints {
		q = q.Filter(c.Field, c.Value)
	}
	q = s.narrow(q)
	if s.keywords != "" {
		q = q.Content(s.backend.Clean(s.keywords))
	}
	q = s.requestFacets(q)
	if s.orderBy != "" {
		q = q.Order(s.orderBy)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	q = q.Page(req.Page, pageSize)
	s.query = q

	observability.SetSpanAttributes(span,
		attribute.String("search.keywords", s.keywords),
		attribute.String("search.order_by", s.orderBy),
		attribute.Int("search.filters", len(s.filters)),
	)

	start := time.Now()
	result, err := s.backend.Execute(ctx, q)
	if err != nil {
		observability.RecordError(span, err)
		if apperrors.IsType(err, apperrors.ErrorTypeExternal) {
			return nil, err
		}
		return nil, apperrors.NewExternalError("search backend failed", err)
	}
	if result.SearchTimeMs == 0 {
		result.SearchTimeMs = float64(time.Since(start).Microseconds()) / 1000
	}

	s.result = result
	s.facets = s.parseFacets(ctx, result.FacetCounts)
	s.searchExecuted = true

	logger.Debug().
		Int("total", result.TotalCount).
		Int("facets", s.facets.Len()).
		Msg("search executed")

	return result, nil
}

// cleanFilters keeps only indexed fields with non-empty values
func (s *Searcher) cleanFilters(filters map[string]string) map[string]string {
	indexed := s.backend.IndexedFields()
	cleaned := make(map[string]string, len(filters))
	for field, value := range filters {
		if _, ok := indexed[field]; ok && value != "" {
			cleaned[field] = value
		}
	}
	return cleaned
}

func (s *Searcher) narrow(q entities.SearchQuery) entities.SearchQuery {
	indexed := s.backend.IndexedFields()

	fields := make([]string, 0, len(s.filters))
	for field := range s.filters {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	for _, field := range fields {
		value := utils.EscapeQueryValue(utils.NormalizeDateToken(s.filters[field]))
		name := field
		if indexed[field].Faceted {
			name = entities.ExactField(field)
		}
		q = q.Narrow(name + ":" + value)
	}
	return q
}

func (s *Searcher) requestFacets(q entities.SearchQuery) entities.SearchQuery {
	for _, ff := range s.cfg.FieldFacets {
		q = q.Facet(ff.Field)
	}
	for _, qf := range s.cfg.QueryFacets {
		for _, query := range qf.Queries {
			q = q.QueryFacet(qf.Field, query)
		}
	}
	now := s.now()
	for _, df := range s.cfg.DateFacets {
		q = q.DateFacet(df.Field, now, now.AddDate(0, 0, df.LookAheadDays), df.GapBy, df.GapAmount)
	}
	return q
}

// resolveOrder matches a requested order against the sort options, falling
// back to the default option. explicit is true only for a valid request.
func (s *Searcher) resolveOrder(ctx context.Context, requested string) (order string, explicit bool) {
	if requested != "" {
		field, reverse := entities.ParseOrderToken(requested)
		for _, opt := range s.cfg.SortOptions {
			if opt.Field == field && opt.Reverse == reverse {
				return requested, true
			}
		}
		observability.LoggerFromContext(ctx).Warn().
			Str("order_by", requested).
			Msg("no sort order config found")
	}
	for _, opt := range s.cfg.SortOptions {
		if opt.Default {
			return entities.OrderToken(opt.Field, opt.Reverse), false
		}
	}
	return "", false
}

// URLParam encodes the parameters reproducing the last search
func (s *Searcher) URLParam() (string, error) {
	if !s.searchExecuted {
		return "", ErrNoSearchPerformed
	}
	return s.facets.URLParam(nil, true), nil
}

// Facets returns the parsed facets of the last search
func (s *Searcher) Facets() (*entities.FacetList, error) {
	if !s.searchExecuted {
		return nil, ErrNoSearchPerformed
	}
	return s.facets, nil
}

// Result returns the result set of the last search
func (s *Searcher) Result() (*entities.SearchResult, error) {
	if !s.searchExecuted {
		return nil, ErrNoSearchPerformed
	}
	return s.result, nil
}

// Query returns the query built by the last search
func (s *Searcher) Query() entities.SearchQuery {
	return s.query
}

// Keywords returns the keywords applied by the last search
func (s *Searcher) Keywords() string {
	return s.keywords
}

// OrderBy returns the order applied by the last search, empty for relevance
func (s *Searcher) OrderBy() string {
	return s.orderBy
}

// CleanedFilters returns the filters that survived cleaning
func (s *Searcher) CleanedFilters() map[string]string {
	return s.filters
}

// isSelected reports whether a narrow for field (or its exact variant)
// already constrains the query to value.
func (s *Searcher) isSelected(field, value string) bool {
	escaped := utils.EscapeQueryValue(value)
	plain := field + ":" + escaped
	exact := entities.ExactField(field) + ":" + escaped
	for _, narrow := range s.query.Narrows {
		if narrow == plain || narrow == exact {
			return true
		}
	}
	return false
}

func (s *Searcher) extraParams() *entities.QueryParams {
	params := entities.NewQueryParams()
	if s.keywords != "" {
		params.Set(KeywordParam, s.keywords)
	}
	if s.orderBy != "" && s.explicitOrder {
		params.Set(entities.OrderParam, s.orderBy)
	}
	return params
}
