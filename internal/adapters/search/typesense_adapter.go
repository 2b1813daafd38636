package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/domain/repositories"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
	"github.com/zatekoja/facetedsearch/pkg/config"
	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
	"github.com/zatekoja/facetedsearch/pkg/utils"
)

const (
	maxFacetValues = 100

	// rangeFacetFloor stands in for an open lower bound in facet_by ranges,
	// which only allow the upper bound to be left empty. It fits int32,
	// int64 and float fields.
	rangeFacetFloor = "-2147483648"
)

// TypesenseSearcher runs a search against one collection
type TypesenseSearcher interface {
	Search(ctx context.Context, params *api.SearchCollectionParams) (*api.SearchResult, error)
}

// TypesenseAdapter executes search queries against a Typesense collection
type TypesenseAdapter struct {
	client  TypesenseSearcher
	queryBy string
	fields  map[string]entities.IndexedField
}

// Ensure TypesenseAdapter implements SearchBackend
var _ repositories.SearchBackend = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client TypesenseSearcher, queryBy string, fields []config.IndexedFieldConfig) *TypesenseAdapter {
	return &TypesenseAdapter{
		client:  client,
		queryBy: queryBy,
		fields:  indexedFieldMap(fields),
	}
}

// IndexedFields returns the fields the collection knows about
func (a *TypesenseAdapter) IndexedFields() map[string]entities.IndexedField {
	return a.fields
}

// Clean collapses whitespace; Typesense keywords carry no operator syntax
func (a *TypesenseAdapter) Clean(keywords string) string {
	return strings.Join(strings.Fields(keywords), " ")
}

// Execute runs query and converts the response
func (a *TypesenseAdapter) Execute(ctx context.Context, query entities.SearchQuery) (*entities.SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "TypesenseAdapter.Execute")
	defer span.End()

	params, rangeLabels := a.params(ctx, query)
	observability.SetSpanAttributes(span,
		attribute.String("typesense.q", *params.Q),
	)

	start := time.Now()
	res, err := a.client.Search(ctx, params)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewExternalError("typesense search failed", err)
	}

	result := &entities.SearchResult{
		FacetCounts:  parseTypesenseFacetCounts(res.FacetCounts, rangeLabels),
		SearchTimeMs: float64(time.Since(start).Microseconds()) / 1000,
	}
	if res.Found != nil {
		result.TotalCount = *res.Found
	}
	if res.SearchTimeMs != nil {
		result.SearchTimeMs = float64(*res.SearchTimeMs)
	}
	if res.Hits != nil {
		result.Documents = make([]map[string]interface{}, 0, len(*res.Hits))
		for _, hit := range *res.Hits {
			if hit.Document != nil {
				result.Documents = append(result.Documents, *hit.Document)
			}
		}
	}

	return result, nil
}

// params translates query into search parameters. rangeLabels maps a field
// to the generated range facet labels and the range tokens they stand for.
func (a *TypesenseAdapter) params(ctx context.Context, query entities.SearchQuery) (*api.SearchCollectionParams, map[string]map[string]string) {
	params := &api.SearchCollectionParams{
		Q:              pointer.String("*"),
		QueryBy:        pointer.String(a.queryBy),
		MaxFacetValues: pointer.Int(maxFacetValues),
	}
	if query.Keywords != "" {
		params.Q = pointer.String(query.Keywords)
	}

	var filters []string
	for _, narrow := range query.Narrows {
		if filter, ok := typesenseFilter(narrow); ok {
			filters = append(filters, filter)
		}
	}
	for _, f := range query.Filters {
		filters = append(filters, f.Field+":="+quoteTypesenseValue(f.Value))
	}
	if len(filters) > 0 {
		params.FilterBy = pointer.String(strings.Join(filters, " && "))
	}

	facetBy := append([]string(nil), query.FieldFacets...)

	rangeLabels := map[string]map[string]string{}
	var rangeFields []string
	rangeSpecs := map[string][]string{}
	for _, qf := range query.QueryFacets {
		lo, hi, ok := splitRange(qf.Query)
		if !ok {
			continue
		}
		if rangeLabels[qf.Field] == nil {
			rangeLabels[qf.Field] = map[string]string{}
			rangeFields = append(rangeFields, qf.Field)
		}
		label := "r" + strconv.Itoa(len(rangeLabels[qf.Field]))
		rangeLabels[qf.Field][label] = qf.Query
		lower := rangeBound(lo)
		if lower == "" {
			lower = rangeFacetFloor
		}
		rangeSpecs[qf.Field] = append(rangeSpecs[qf.Field],
			fmt.Sprintf("%s:[%s, %s]", label, lower, rangeBound(hi)))
	}
	for _, field := range rangeFields {
		facetBy = append(facetBy, field+"("+strings.Join(rangeSpecs[field], ", ")+")")
	}

	for _, df := range query.DateFacets {
		observability.LoggerFromContext(ctx).Warn().
			Str("field", df.Field).
			Msg("date facets are not supported by typesense, skipping")
	}

	if len(facetBy) > 0 {
		params.FacetBy = pointer.String(strings.Join(facetBy, ","))
	}

	if len(query.OrderBy) > 0 {
		sorts := make([]string, 0, len(query.OrderBy))
		for _, order := range query.OrderBy {
			if field, ok := strings.CutPrefix(order, "-"); ok {
				sorts = append(sorts, field+":desc")
			} else {
				sorts = append(sorts, order+":asc")
			}
		}
		params.SortBy = pointer.String(strings.Join(sorts, ","))
	}

	if query.Rows > 0 {
		params.Page = pointer.Int(query.Start/query.Rows + 1)
		params.PerPage = pointer.Int(query.Rows)
	}

	return params, rangeLabels
}

func parseTypesenseFacetCounts(raw *[]api.FacetCounts, rangeLabels map[string]map[string]string) entities.FacetCounts {
	counts := entities.NewFacetCounts()
	if raw == nil {
		return counts
	}

	for _, fc := range *raw {
		if fc.FieldName == nil || fc.Counts == nil {
			continue
		}
		field := *fc.FieldName
		labels := rangeLabels[field]

		var items []entities.FacetCount
		for _, c := range *fc.Counts {
			if c.Value == nil {
				continue
			}
			count := 0
			if c.Count != nil {
				count = *c.Count
			}
			if token, ok := labels[*c.Value]; ok {
				counts.Queries[field+":"+token] = count
				continue
			}
			items = append(items, entities.FacetCount{Value: *c.Value, Count: count})
		}
		if len(items) > 0 {
			counts.Fields[field] = items
		}
	}
	return counts
}

// typesenseFilter converts a field:value narrow constraint into filter_by
// syntax. Constraints that do not restrict anything are dropped.
func typesenseFilter(constraint string) (string, bool) {
	field, value, found := strings.Cut(constraint, ":")
	if !found {
		return "", false
	}
	field = strings.TrimSuffix(field, entities.ExactSuffix)

	if !utils.IsRangeToken(value) {
		return field + ":=" + quoteTypesenseValue(unescapeQueryValue(value)), true
	}

	lo, hi, ok := splitRange(value)
	if !ok {
		return "", false
	}
	lo, hi = rangeBound(lo), rangeBound(hi)
	switch {
	case lo == "" && hi == "":
		return "", false
	case lo == "":
		return field + ":<=" + hi, true
	case hi == "":
		return field + ":>=" + lo, true
	}
	return fmt.Sprintf("%s:[%s..%s]", field, lo, hi), true
}

// splitRange returns the bounds of a [lo TO hi] token
func splitRange(token string) (lo, hi string, ok bool) {
	if !utils.IsRangeToken(token) {
		return "", "", false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(token, "["), "]")
	return strings.Cut(inner, " TO ")
}

// rangeBound renders one bound for Typesense: the wildcard becomes empty
// and timestamps become unix seconds.
func rangeBound(bound string) string {
	bound = strings.TrimSpace(bound)
	if bound == utils.RangeWildcard {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, bound); err == nil {
		return strconv.FormatInt(t.Unix(), 10)
	}
	return bound
}

func quoteTypesenseValue(value string) string {
	return "`" + strings.ReplaceAll(value, "`", "") + "`"
}

func unescapeQueryValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	escaped := false
	for _, r := range value {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
