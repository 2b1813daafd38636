package entities

import (
	"cmp"
	"slices"

	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
)

// FacetList is the ordered set of facets produced by one search. It owns its
// facets and is the only place that can turn a selection into URL parameters.
type FacetList struct {
	Facets []*Facet `json:"facets"`
	// ExtraParams are always emitted first, e.g. keyword and explicit order
	ExtraParams *QueryParams `json:"-"`
	// ExcludeParams names fields never emitted in generated URLs
	ExcludeParams []string `json:"-"`
	// SortOrder is the field precedence used by SelectedItems
	SortOrder []string `json:"-"`
}

// NewFacetList creates an empty list
func NewFacetList(extraParams *QueryParams, excludeParams []string) *FacetList {
	if extraParams == nil {
		extraParams = NewQueryParams()
	}
	return &FacetList{
		ExtraParams:   extraParams,
		ExcludeParams: excludeParams,
	}
}

// Append adds facet, replacing any facet already registered for the same field
func (l *FacetList) Append(facet *Facet) {
	for i, existing := range l.Facets {
		if existing.Field == facet.Field {
			l.Facets[i] = facet
			return
		}
	}
	l.Facets = append(l.Facets, facet)
}

// Remove drops the facet for field, reporting whether it existed
func (l *FacetList) Remove(field string) bool {
	before := len(l.Facets)
	l.Facets = slices.DeleteFunc(l.Facets, func(f *Facet) bool { return f.Field == field })
	return len(l.Facets) != before
}

// Lookup finds the facet for field
func (l *FacetList) Lookup(field string) (*Facet, bool) {
	for _, facet := range l.Facets {
		if facet.Field == field {
			return facet, true
		}
	}
	return nil, false
}

// Get returns the facet for field or a NOT_FOUND error
func (l *FacetList) Get(field string) (*Facet, error) {
	facet, ok := l.Lookup(field)
	if !ok {
		return nil, apperrors.NewNotFoundError("facet not found")
	}
	return facet, nil
}

// Contains reports whether a facet exists for field
func (l *FacetList) Contains(field string) bool {
	_, ok := l.Lookup(field)
	return ok
}

// Len returns the number of facets
func (l *FacetList) Len() int {
	return len(l.Facets)
}

// HasSelected reports whether any facet has a selected item
func (l *FacetList) HasSelected() bool {
	return slices.ContainsFunc(l.Facets, (*Facet).HasSelected)
}

// HasActive reports whether any facet is worth displaying
func (l *FacetList) HasActive() bool {
	return slices.ContainsFunc(l.Facets, (*Facet).HasActive)
}

// SelectedItems returns every selected item ordered by the configured field
// precedence. Fields missing from SortOrder rank first and keep list order.
func (l *FacetList) SelectedItems() []*FacetItem {
	var selected []*FacetItem
	for _, facet := range l.Facets {
		selected = append(selected, facet.SelectedItems()...)
	}
	slices.SortStableFunc(selected, func(a, b *FacetItem) int {
		return cmp.Compare(l.precedence(a.Field), l.precedence(b.Field))
	})
	return selected
}

func (l *FacetList) precedence(field string) int {
	if idx := slices.Index(l.SortOrder, field); idx >= 0 {
		return idx
	}
	return 0
}

func (l *FacetList) excluded(field string) bool {
	return slices.Contains(l.ExcludeParams, field)
}

// Params builds the parameter set for the current selection with candidate
// toggled. A nil candidate yields the current selection as-is. With
// includeCandidate false the candidate is dropped, which is how removal
// links are built.
func (l *FacetList) Params(candidate *FacetItem, includeCandidate bool) *QueryParams {
	params := l.ExtraParams.Clone()

	for _, facet := range l.Facets {
		if l.excluded(facet.Field) {
			continue
		}
		for _, item := range facet.Items {
			if !item.IsSelected {
				continue
			}
			if item == candidate && !includeCandidate {
				continue
			}
			params.Set(facet.Field, item.Value)
		}
	}

	if candidate != nil && includeCandidate && !l.excluded(candidate.Field) {
		params.Set(candidate.Field, candidate.Value)
	}

	return params
}

// URLParam encodes Params as a query string without a leading '?'
func (l *FacetList) URLParam(candidate *FacetItem, includeCandidate bool) string {
	return l.Params(candidate, includeCandidate).Encode()
}

// ItemURL is the link applying item on top of the current selection
func (l *FacetList) ItemURL(item *FacetItem) string {
	return BuildURL(item.BaseURL, l.URLParam(item, true))
}

// ItemRemovalURL is the link to the current selection without item
func (l *FacetList) ItemRemovalURL(item *FacetItem) string {
	return BuildURL(item.BaseURL, l.URLParam(item, false))
}
