package services

import (
	"context"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
	"github.com/zatekoja/facetedsearch/pkg/config"
)

// Facet orderings accepted by SelectFacets
const (
	SortByValue = "value"
	SortByCount = "count"
)

// SelectFacets picks what a facet region should render. An empty field
// selects the whole list; otherwise the single facet is returned sorted by
// sortBy. A missing facet yields a NOT_FOUND error.
func SelectFacets(ctx context.Context, list *entities.FacetList, field, sortBy string) ([]*entities.Facet, error) {
	if field == "" {
		return list.Facets, nil
	}

	facet, err := list.Get(field)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Str("field", field).
			Msg("facet field not found")
		return nil, err
	}

	switch sortBy {
	case SortByValue:
		facet.SortByValue()
	case SortByCount:
		facet.SortByCount()
	}
	return []*entities.Facet{facet}, nil
}

// PriceWidget is the context for rendering a price range selector
type PriceWidget struct {
	Currency   string            `json:"currency"`
	PriceField string            `json:"price_field"`
	SliderMax  int               `json:"slider_max"`
	Facets     []*entities.Facet `json:"facets"`
}

// BuildPriceWidget selects the price facet for a currency and labels its
// items with the currency symbol.
func BuildPriceWidget(ctx context.Context, list *entities.FacetList, price config.PriceConfig, currency, sortBy string) (*PriceWidget, error) {
	code := price.Currency(currency)
	field := entities.LocalizeField(price.FacetRoot, code)

	facets, err := SelectFacets(ctx, list, field, sortBy)
	if err != nil {
		return nil, err
	}

	symbol := price.Symbol(code)
	for _, facet := range facets {
		for _, item := range facet.Items {
			if item.IsRange() {
				item.Label = entities.PriceLabelFromQuery(item.Value, symbol, price.SliderMax)
			}
		}
	}

	return &PriceWidget{
		Currency:   code,
		PriceField: field,
		SliderMax:  price.SliderMax,
		Facets:     facets,
	}, nil
}
