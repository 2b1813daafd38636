package repositories

import (
	"context"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
)

// SearchBackend defines the interface to an external search engine (e.g. Solr, Typesense)
type SearchBackend interface {
	// Execute runs the query and returns documents plus raw facet counts
	Execute(ctx context.Context, query entities.SearchQuery) (*entities.SearchResult, error)

	// IndexedFields returns the fields known to the index keyed by name
	IndexedFields() map[string]entities.IndexedField

	// Clean escapes user keywords for use in a full-text query
	Clean(keywords string) string
}
