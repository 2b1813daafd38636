package entities

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/zatekoja/facetedsearch/pkg/utils"
)

// FacetKind distinguishes how a facet's values were produced by the backend
type FacetKind int

const (
	// KindField facets hold discrete terms
	KindField FacetKind = iota
	// KindQuery facets hold range tokens such as [500 TO 1000]
	KindQuery
	// KindDate facets hold date buckets
	KindDate
)

func (k FacetKind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindDate:
		return "date"
	default:
		return "field"
	}
}

// MarshalText encodes the kind by name
func (k FacetKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Facet is a filterable dimension (one index field) and its selectable items
type Facet struct {
	Field       string       `json:"field"`
	Label       string       `json:"label"`
	LabelPlural string       `json:"label_plural"`
	Kind        FacetKind    `json:"kind"`
	Items       []*FacetItem `json:"items"`
}

// NewFacet creates a field facet
func NewFacet(field, label string) *Facet {
	return newFacet(KindField, field, label)
}

// NewQueryFacet creates a facet whose values are range tokens
func NewQueryFacet(field, label string) *Facet {
	return newFacet(KindQuery, field, label)
}

// NewDateFacet creates a facet whose values are date buckets
func NewDateFacet(field, label string) *Facet {
	return newFacet(KindDate, field, label)
}

func newFacet(kind FacetKind, field, label string) *Facet {
	return &Facet{
		Field:       field,
		Label:       label,
		LabelPlural: Pluralize(field),
		Kind:        kind,
	}
}

// AddItem appends item and binds it to this facet's field
func (f *Facet) AddItem(item *FacetItem) {
	item.Field = f.Field
	f.Items = append(f.Items, item)
}

// Remove drops item, reporting whether it was present
func (f *Facet) Remove(item *FacetItem) bool {
	idx := slices.Index(f.Items, item)
	if idx < 0 {
		return false
	}
	f.Items = slices.Delete(f.Items, idx, idx+1)
	return true
}

// Item looks up an item by value
func (f *Facet) Item(value string) (*FacetItem, bool) {
	for _, item := range f.Items {
		if item.Value == value {
			return item, true
		}
	}
	return nil, false
}

// Len returns the number of items
func (f *Facet) Len() int {
	return len(f.Items)
}

// SortByValue orders items ascending by value. Query facets compare the
// numeric left bound of their range tokens so [11 TO 15] sorts before
// [2001 TO *].
func (f *Facet) SortByValue() {
	if f.Kind == KindQuery {
		slices.SortStableFunc(f.Items, func(a, b *FacetItem) int {
			return compareRanges(a.Value, b.Value)
		})
		return
	}
	slices.SortStableFunc(f.Items, func(a, b *FacetItem) int {
		return strings.Compare(a.Value, b.Value)
	})
}

// SortByCount orders items by descending count; ties keep their order
func (f *Facet) SortByCount() {
	slices.SortStableFunc(f.Items, func(a, b *FacetItem) int {
		return cmp.Compare(b.Count, a.Count)
	})
}

// HasSelected reports whether any item is selected
func (f *Facet) HasSelected() bool {
	return slices.ContainsFunc(f.Items, func(i *FacetItem) bool { return i.IsSelected })
}

// HasActive reports whether at least one unselected item has a count above
// one. Facets without such an option are hidden by the presentation layer.
func (f *Facet) HasActive() bool {
	return slices.ContainsFunc(f.Items, func(i *FacetItem) bool {
		return !i.IsSelected && i.Count > 1
	})
}

// SelectedItems returns the selected items in item order
func (f *Facet) SelectedItems() []*FacetItem {
	var selected []*FacetItem
	for _, item := range f.Items {
		if item.IsSelected {
			selected = append(selected, item)
		}
	}
	return selected
}

func (f *Facet) String() string {
	return fmt.Sprintf("<Facet: %s>", f.Field)
}

// ValidateRange reports whether token is a backend range token
func ValidateRange(token string) bool {
	return utils.IsRangeToken(token)
}

// LocalizeField builds the per-currency field name, e.g. min_price + gbp -> min_price_GBP
func LocalizeField(baseField, currencyCode string) string {
	return baseField + "_" + strings.ToUpper(currencyCode)
}

// Pluralize is a primitive English pluralizer used for facet labels
func Pluralize(value string) string {
	if value == "" {
		return value
	}
	switch {
	case strings.HasSuffix(value, "s"):
		return value + "es"
	case strings.HasSuffix(value, "y"):
		return strings.TrimSuffix(value, "y") + "ies"
	default:
		return value + "s"
	}
}

// compareRanges orders numeric lower bounds first, then falls back to plain
// string comparison for tokens without one.
func compareRanges(a, b string) int {
	av, aok := utils.RangeLowerBound(a)
	bv, bok := utils.RangeLowerBound(b)
	switch {
	case aok && bok:
		return cmp.Compare(av, bv)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
