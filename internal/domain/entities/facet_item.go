package entities

import (
	"strings"

	"github.com/zatekoja/facetedsearch/pkg/utils"
)

// FacetItem is one selectable value within a Facet
type FacetItem struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	Count      int    `json:"count"`
	IsSelected bool   `json:"is_selected"`
	// Field is the owning facet's field, assigned once by Facet.AddItem
	Field   string `json:"field"`
	BaseURL string `json:"-"`
	// Year is set for date-valued items so callers can group them
	Year int `json:"year,omitempty"`
}

// NewFacetItem creates an unselected item labelled with its value
func NewFacetItem(value string, count int) *FacetItem {
	return &FacetItem{
		Value: value,
		Label: value,
		Count: count,
	}
}

// IsRange reports whether the item's value is a backend range token
func (i *FacetItem) IsRange() bool {
	return utils.IsRangeToken(i.Value)
}

// BuildURL appends an encoded parameter string to baseURL, choosing between
// '?' and '&' by what baseURL already contains. Empty params leave baseURL as-is.
func BuildURL(baseURL, params string) string {
	switch {
	case params == "":
		return baseURL
	case !strings.Contains(baseURL, "?"):
		return baseURL + "?" + params
	case strings.HasSuffix(baseURL, "?"), strings.HasSuffix(baseURL, "&"):
		return baseURL + params
	default:
		return baseURL + "&" + params
	}
}
