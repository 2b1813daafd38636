package search

import (
	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/pkg/config"
)

// indexedFieldMap keys the configured index fields by name
func indexedFieldMap(fields []config.IndexedFieldConfig) map[string]entities.IndexedField {
	m := make(map[string]entities.IndexedField, len(fields))
	for _, f := range fields {
		m[f.Name] = entities.IndexedField{Name: f.Name, Faceted: f.Faceted}
	}
	return m
}

// facetFieldName returns the name the index stores facet values under
func facetFieldName(fields map[string]entities.IndexedField, field string) string {
	if fields[field].Faceted {
		return entities.ExactField(field)
	}
	return field
}
