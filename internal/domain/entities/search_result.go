package entities

// FacetCount represents a facet value and its count
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DateFacetCounts holds the buckets returned for one date facet
type DateFacetCounts struct {
	// Counts maps bucket start timestamps to document counts
	Counts map[string]int `json:"counts"`
	// Gap is the bucket size descriptor, e.g. +1MONTH/MONTH
	Gap string `json:"gap"`
	End string `json:"end,omitempty"`
}

// FacetCounts contains raw facet data as reported by the search backend
type FacetCounts struct {
	// Fields maps a field to its (value, count) pairs in backend order
	Fields map[string][]FacetCount `json:"fields"`
	// Queries maps "field:rangeToken" to a count
	Queries map[string]int             `json:"queries"`
	Dates   map[string]DateFacetCounts `json:"dates"`
}

// NewFacetCounts creates an empty FacetCounts with initialized maps
func NewFacetCounts() FacetCounts {
	return FacetCounts{
		Fields:  map[string][]FacetCount{},
		Queries: map[string]int{},
		Dates:   map[string]DateFacetCounts{},
	}
}

// SearchResult is the executed result set of one backend query
type SearchResult struct {
	// TotalCount is the total number of results (before pagination)
	TotalCount  int                      `json:"total_count"`
	Documents   []map[string]interface{} `json:"documents"`
	FacetCounts FacetCounts              `json:"-"`

	// SearchTimeMs is the time taken for the search in milliseconds
	SearchTimeMs float64 `json:"search_time_ms"`
}

// IndexedField describes one field known to the backend index
type IndexedField struct {
	Name    string `json:"name" yaml:"name"`
	Faceted bool   `json:"faceted" yaml:"faceted"`
}

// ExactSuffix names the untokenized variant of a faceted field
const ExactSuffix = "_exact"

// ExactField returns the untokenized variant name of field
func ExactField(field string) string {
	return field + ExactSuffix
}
