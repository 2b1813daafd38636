package entities

import (
	"slices"
	"time"
)

// Date facet bucket sizes
const (
	GapMonth = "month"
	GapYear  = "year"
)

// Filter is a field=value constraint
type Filter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// QueryFacetRequest asks the backend to count documents matching one range
type QueryFacetRequest struct {
	Field string `json:"field"`
	Query string `json:"query"`
}

// DateFacetRequest asks the backend to bucket a date field
type DateFacetRequest struct {
	Field string    `json:"field"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	GapBy string    `json:"gap_by"`
	// GapAmount is the bucket width in GapBy units
	GapAmount int `json:"gap_amount"`
}

// SearchQuery is an immutable description of one backend query. Every
// builder method returns a modified copy and leaves the receiver untouched.
type SearchQuery struct {
	// Narrows are raw field:value constraints, already escaped
	Narrows     []string            `json:"narrows,omitempty"`
	Filters     []Filter            `json:"filters,omitempty"`
	Keywords    string              `json:"keywords,omitempty"`
	OrderBy     []string            `json:"order_by,omitempty"`
	FieldFacets []string            `json:"field_facets,omitempty"`
	QueryFacets []QueryFacetRequest `json:"query_facets,omitempty"`
	DateFacets  []DateFacetRequest  `json:"date_facets,omitempty"`
	Start       int                 `json:"start"`
	Rows        int                 `json:"rows"`
}

// NewSearchQuery returns an empty query
func NewSearchQuery() SearchQuery {
	return SearchQuery{}
}

func (q SearchQuery) clone() SearchQuery {
	q.Narrows = slices.Clone(q.Narrows)
	q.Filters = slices.Clone(q.Filters)
	q.OrderBy = slices.Clone(q.OrderBy)
	q.FieldFacets = slices.Clone(q.FieldFacets)
	q.QueryFacets = slices.Clone(q.QueryFacets)
	q.DateFacets = slices.Clone(q.DateFacets)
	return q
}

// Narrow adds a raw field:value constraint
func (q SearchQuery) Narrow(constraint string) SearchQuery {
	c := q.clone()
	c.Narrows = append(c.Narrows, constraint)
	return c
}

// Filter adds a field=value constraint
func (q SearchQuery) Filter(field, value string) SearchQuery {
	c := q.clone()
	c.Filters = append(c.Filters, Filter{Field: field, Value: value})
	return c
}

// Content sets the full-text keywords
func (q SearchQuery) Content(keywords string) SearchQuery {
	c := q.clone()
	c.Keywords = keywords
	return c
}

// Order appends a sort field; a leading '-' means descending
func (q SearchQuery) Order(field string) SearchQuery {
	c := q.clone()
	c.OrderBy = append(c.OrderBy, field)
	return c
}

// Facet requests term counts for field
func (q SearchQuery) Facet(field string) SearchQuery {
	c := q.clone()
	c.FieldFacets = append(c.FieldFacets, field)
	return c
}

// QueryFacet requests a count for one range of field
func (q SearchQuery) QueryFacet(field, query string) SearchQuery {
	c := q.clone()
	c.QueryFacets = append(c.QueryFacets, QueryFacetRequest{Field: field, Query: query})
	return c
}

// DateFacet requests bucketed counts for a date field
func (q SearchQuery) DateFacet(field string, start, end time.Time, gapBy string, gapAmount int) SearchQuery {
	c := q.clone()
	c.DateFacets = append(c.DateFacets, DateFacetRequest{
		Field:     field,
		Start:     start,
		End:       end,
		GapBy:     gapBy,
		GapAmount: gapAmount,
	})
	return c
}

// Page limits results to one page; page is 1-based
func (q SearchQuery) Page(page, size int) SearchQuery {
	c := q.clone()
	if page < 1 {
		page = 1
	}
	if size < 0 {
		size = 0
	}
	c.Start = (page - 1) * size
	c.Rows = size
	return c
}
