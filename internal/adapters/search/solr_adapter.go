package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vanng822/go-solr/solr"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/domain/repositories"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
	"github.com/zatekoja/facetedsearch/pkg/config"
	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
	"github.com/zatekoja/facetedsearch/pkg/utils"
)

const (
	solrMatchAll   = "*:*"
	solrDateLayout = "2006-01-02T15:04:05Z"
)

var (
	solrReservedWords = map[string]struct{}{"AND": {}, "NOT": {}, "OR": {}, "TO": {}}

	solrReplacer = strings.NewReplacer(
		`\`, `\\`,
		`+`, `\+`,
		`-`, `\-`,
		`&&`, `\&&`,
		`||`, `\||`,
		`!`, `\!`,
		`(`, `\(`,
		`)`, `\)`,
		`{`, `\{`,
		`}`, `\}`,
		`[`, `\[`,
		`]`, `\]`,
		`^`, `\^`,
		`"`, `\"`,
		`~`, `\~`,
		`*`, `\*`,
		`?`, `\?`,
		`:`, `\:`,
		`/`, `\/`,
	)
)

// SolrSearcher runs a prepared select request
type SolrSearcher interface {
	Search(q *solr.Query) (*solr.SolrResult, error)
}

// SolrAdapter executes search queries against a Solr core
type SolrAdapter struct {
	client SolrSearcher
	fields map[string]entities.IndexedField
}

// Ensure SolrAdapter implements SearchBackend
var _ repositories.SearchBackend = (*SolrAdapter)(nil)

// NewSolrAdapter creates a new Solr adapter
func NewSolrAdapter(client SolrSearcher, fields []config.IndexedFieldConfig) *SolrAdapter {
	return &SolrAdapter{
		client: client,
		fields: indexedFieldMap(fields),
	}
}

// IndexedFields returns the fields the core knows about
func (a *SolrAdapter) IndexedFields() map[string]entities.IndexedField {
	return a.fields
}

// Clean escapes keywords for the standard query parser. Reserved operators
// are lowercased so they match as terms.
func (a *SolrAdapter) Clean(keywords string) string {
	words := strings.Fields(keywords)
	for i, word := range words {
		if _, ok := solrReservedWords[word]; ok {
			word = strings.ToLower(word)
		}
		words[i] = solrReplacer.Replace(word)
	}
	return strings.Join(words, " ")
}

// Execute runs query and converts the response
func (a *SolrAdapter) Execute(ctx context.Context, query entities.SearchQuery) (*entities.SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "SolrAdapter.Execute")
	defer span.End()

	params := a.params(query)
	observability.SetSpanAttributes(span,
		attribute.String("solr.q", params.Get("q")),
		attribute.Int("solr.fq", len(params["fq"])),
	)

	q := solr.NewQuery()
	for key, values := range params {
		for _, value := range values {
			q.AddParam(key, value)
		}
	}

	type response struct {
		res *solr.SolrResult
		err error
	}
	done := make(chan response, 1)
	start := time.Now()
	go func() {
		res, err := a.client.Search(q)
		done <- response{res: res, err: err}
	}()

	var resp response
	select {
	case <-ctx.Done():
		observability.RecordError(span, ctx.Err())
		return nil, apperrors.NewExternalError("solr search cancelled", ctx.Err())
	case resp = <-done:
	}

	if resp.err != nil {
		observability.RecordError(span, resp.err)
		return nil, apperrors.NewExternalError("solr search failed", resp.err)
	}
	if resp.res == nil {
		return nil, apperrors.NewExternalError("solr search failed", fmt.Errorf("empty response"))
	}
	if resp.res.Status != 0 {
		err := fmt.Errorf("status %d: %v", resp.res.Status, resp.res.Error["msg"])
		observability.RecordError(span, err)
		return nil, apperrors.NewExternalError("solr search failed", err)
	}

	result := &entities.SearchResult{
		FacetCounts:  parseSolrFacetCounts(resp.res.FacetCounts),
		SearchTimeMs: float64(time.Since(start).Microseconds()) / 1000,
	}
	if resp.res.Results != nil {
		result.TotalCount = resp.res.Results.NumFound
		result.Documents = make([]map[string]interface{}, 0, len(resp.res.Results.Docs))
		for _, doc := range resp.res.Results.Docs {
			result.Documents = append(result.Documents, map[string]interface{}(doc))
		}
	}

	observability.LoggerFromContext(ctx).Debug().
		Int("num_found", result.TotalCount).
		Msg("solr search completed")

	return result, nil
}

// params translates query into select request parameters
func (a *SolrAdapter) params(query entities.SearchQuery) url.Values {
	params := url.Values{}

	if query.Keywords != "" {
		params.Set("q", query.Keywords)
	} else {
		params.Set("q", solrMatchAll)
	}

	for _, narrow := range query.Narrows {
		params.Add("fq", narrow)
	}
	for _, f := range query.Filters {
		params.Add("fq", f.Field+":"+utils.EscapeQueryValue(f.Value))
	}

	if len(query.FieldFacets) > 0 || len(query.QueryFacets) > 0 || len(query.DateFacets) > 0 {
		params.Set("facet", "on")
	}
	for _, field := range query.FieldFacets {
		params.Add("facet.field", facetFieldName(a.fields, field))
	}
	for _, qf := range query.QueryFacets {
		params.Add("facet.query", facetFieldName(a.fields, qf.Field)+":"+qf.Query)
	}
	for _, df := range query.DateFacets {
		field := facetFieldName(a.fields, df.Field)
		unit := strings.ToUpper(df.GapBy)
		params.Add("facet.range", field)
		params.Set("f."+field+".facet.range.start", df.Start.UTC().Format(solrDateLayout))
		params.Set("f."+field+".facet.range.end", df.End.UTC().Format(solrDateLayout))
		params.Set("f."+field+".facet.range.gap", fmt.Sprintf("+%d%s/%s", df.GapAmount, unit, unit))
	}

	if len(query.OrderBy) > 0 {
		sorts := make([]string, 0, len(query.OrderBy))
		for _, order := range query.OrderBy {
			if field, ok := strings.CutPrefix(order, "-"); ok {
				sorts = append(sorts, field+" desc")
			} else {
				sorts = append(sorts, order+" asc")
			}
		}
		params.Set("sort", strings.Join(sorts, ","))
	}

	params.Set("start", strconv.Itoa(query.Start))
	params.Set("rows", strconv.Itoa(query.Rows))
	return params
}

// parseSolrFacetCounts reads the facet_counts section of a select response.
// Both facet_ranges and the older facet_dates layouts are understood.
func parseSolrFacetCounts(raw map[string]interface{}) entities.FacetCounts {
	counts := entities.NewFacetCounts()
	if raw == nil {
		return counts
	}

	if fields, ok := raw["facet_fields"].(map[string]interface{}); ok {
		for field, values := range fields {
			pairs, ok := values.([]interface{})
			if !ok {
				continue
			}
			items := make([]entities.FacetCount, 0, len(pairs)/2)
			for i := 0; i+1 < len(pairs); i += 2 {
				items = append(items, entities.FacetCount{
					Value: fmt.Sprint(pairs[i]),
					Count: toInt(pairs[i+1]),
				})
			}
			counts.Fields[strings.TrimSuffix(field, entities.ExactSuffix)] = items
		}
	}

	if queries, ok := raw["facet_queries"].(map[string]interface{}); ok {
		for key, value := range queries {
			counts.Queries[key] = toInt(value)
		}
	}

	if ranges, ok := raw["facet_ranges"].(map[string]interface{}); ok {
		for field, value := range ranges {
			section, ok := value.(map[string]interface{})
			if !ok {
				continue
			}
			buckets := entities.DateFacetCounts{Counts: map[string]int{}}
			buckets.Gap, _ = section["gap"].(string)
			buckets.End, _ = section["end"].(string)
			if pairs, ok := section["counts"].([]interface{}); ok {
				for i := 0; i+1 < len(pairs); i += 2 {
					buckets.Counts[fmt.Sprint(pairs[i])] = toInt(pairs[i+1])
				}
			}
			counts.Dates[strings.TrimSuffix(field, entities.ExactSuffix)] = buckets
		}
	}

	if dates, ok := raw["facet_dates"].(map[string]interface{}); ok {
		for field, value := range dates {
			section, ok := value.(map[string]interface{})
			if !ok {
				continue
			}
			buckets := entities.DateFacetCounts{Counts: map[string]int{}}
			for key, v := range section {
				switch key {
				case "gap":
					buckets.Gap, _ = v.(string)
				case "end":
					buckets.End, _ = v.(string)
				case "start", "before", "after", "between":
				default:
					buckets.Counts[key] = toInt(v)
				}
			}
			counts.Dates[strings.TrimSuffix(field, entities.ExactSuffix)] = buckets
		}
	}

	return counts
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}
