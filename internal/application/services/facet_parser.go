package services

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
	"github.com/zatekoja/facetedsearch/pkg/utils"
)

// Date facet gap descriptors as reported by the backend
const (
	GapMonthDescriptor = "+1MONTH/MONTH"
	GapYearDescriptor  = "+1YEAR/YEAR"
)

// parseFacets turns raw backend counts into one FacetList: field facets
// first, then query facets, then date facets.
func (s *Searcher) parseFacets(ctx context.Context, counts entities.FacetCounts) *entities.FacetList {
	list := entities.NewFacetList(s.extraParams(), s.cfg.ExcludeParams)
	list.SortOrder = s.cfg.SortOrder

	var facets []*entities.Facet
	facets = append(facets, s.parseFieldFacets(counts.Fields)...)
	facets = append(facets, s.parseQueryFacets(counts.Queries)...)
	facets = append(facets, s.parseDateFacets(ctx, counts.Dates)...)

	for _, facet := range facets {
		for _, item := range facet.Items {
			item.BaseURL = s.cfg.BaseURL
		}
		list.Append(facet)
	}
	return list
}

// parseFieldFacets builds one facet per field from ordered (value, count) pairs
func (s *Searcher) parseFieldFacets(fields map[string][]entities.FacetCount) []*entities.Facet {
	byField := make(map[string][]entities.FacetCount, len(fields))
	for key, counts := range fields {
		byField[strings.TrimSuffix(key, entities.ExactSuffix)] = counts
	}

	configured := make([]string, 0, len(s.cfg.FieldFacets))
	for _, ff := range s.cfg.FieldFacets {
		configured = append(configured, ff.Field)
	}

	var facets []*entities.Facet
	for _, field := range orderedFields(byField, configured) {
		label, ok := s.cfg.FieldLabel(field)
		if !ok {
			label = utils.HumanizeField(field)
		}
		facet := entities.NewFacet(field, label)
		for _, c := range byField[field] {
			item := entities.NewFacetItem(c.Value, c.Count)
			item.IsSelected = s.isSelected(field, item.Value)
			facet.AddItem(item)
		}
		facets = append(facets, facet)
	}
	return facets
}

// parseQueryFacets groups "field:rangeToken" counts back into one facet per field
func (s *Searcher) parseQueryFacets(queries map[string]int) []*entities.Facet {
	byField := map[string]map[string]int{}
	for key, count := range queries {
		field, token, found := strings.Cut(key, ":")
		if !found {
			continue
		}
		field = strings.TrimSuffix(field, entities.ExactSuffix)
		if byField[field] == nil {
			byField[field] = map[string]int{}
		}
		byField[field][token] = count
	}

	configured := make([]string, 0, len(s.cfg.QueryFacets))
	tokenOrder := map[string][]string{}
	for _, qf := range s.cfg.QueryFacets {
		configured = append(configured, qf.Field)
		tokenOrder[qf.Field] = qf.Queries
	}

	var facets []*entities.Facet
	for _, field := range orderedFields(byField, configured) {
		label, ok := s.cfg.QueryLabel(field)
		if !ok {
			label = utils.HumanizeField(field)
		}
		facet := entities.NewQueryFacet(field, label)
		for _, token := range orderedFields(byField[field], tokenOrder[field]) {
			item := entities.NewFacetItem(token, byField[field][token])
			item.Label = utils.HumanizeRange(token)
			item.IsSelected = s.isSelected(field, item.Value)
			facet.AddItem(item)
		}
		facets = append(facets, facet)
	}
	return facets
}

// parseDateFacets turns bucket timestamps into month (YYYY-MM) or year
// (YYYY-01) items ordered by value. Wider gaps become YYYY-MM-DD-YYYY-MM-DD
// items spanning the whole bucket.
func (s *Searcher) parseDateFacets(ctx context.Context, dates map[string]entities.DateFacetCounts) []*entities.Facet {
	byField := make(map[string]entities.DateFacetCounts, len(dates))
	for key, counts := range dates {
		byField[strings.TrimSuffix(key, entities.ExactSuffix)] = counts
	}

	configured := make([]string, 0, len(s.cfg.DateFacets))
	for _, df := range s.cfg.DateFacets {
		configured = append(configured, df.Field)
	}

	var facets []*entities.Facet
	for _, field := range orderedFields(byField, configured) {
		label, ok := s.cfg.DateLabel(field)
		if !ok {
			label = utils.HumanizeField(field)
		}
		facet := entities.NewDateFacet(field, label)
		bucket := byField[field]

		for _, stamp := range orderedFields(bucket.Counts, nil) {
			date, ok := utils.ParseBucketDate(stamp)
			if !ok {
				observability.LoggerFromContext(ctx).Debug().
					Str("field", field).
					Str("bucket", stamp).
					Msg("skipping unparsable date bucket")
				continue
			}

			item := entities.NewFacetItem(date.Format("2006-01-02"), bucket.Counts[stamp])
			amount, unit, ok := utils.ParseGap(bucket.Gap)
			switch {
			case !ok:
			case amount == 1 && unit == utils.GapMonth:
				item.Label = date.Format("January")
				item.Value = date.Format("2006-01")
			case amount == 1 && unit == utils.GapYear:
				item.Label = date.Format("2006")
				item.Value = date.Format("2006") + "-01"
			default:
				end := date.AddDate(0, amount, -1)
				if unit == utils.GapYear {
					end = date.AddDate(amount, 0, -1)
				}
				item.Value = utils.FormatDateRange(date, end)
				item.Label = entities.DateLabelFromQuery(item.Value)
			}
			item.Year = date.Year()
			item.IsSelected = s.isSelected(field, utils.NormalizeDateToken(item.Value))
			facet.AddItem(item)
		}

		facet.SortByValue()
		facets = append(facets, facet)
	}
	return facets
}

// orderedFields returns the keys of m, configured keys first in configured
// order, then the rest alphabetically.
func orderedFields[V any](m map[string]V, configured []string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	rank := func(k string) int {
		if idx := slices.Index(configured, k); idx >= 0 {
			return idx
		}
		return len(configured)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return keys
}
