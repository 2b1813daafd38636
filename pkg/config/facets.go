package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FacetsConfig holds the static facet and sort tables. It is read-only once
// loaded and shared by every search.
type FacetsConfig struct {
	FieldFacets []FieldFacetConfig `yaml:"field_facets"`
	QueryFacets []QueryFacetConfig `yaml:"query_facets"`
	DateFacets  []DateFacetConfig  `yaml:"date_facets"`
	SortOptions []SortOption       `yaml:"sort_options"`
	// SortOrder is the field precedence for selected items (breadcrumbs)
	SortOrder     []string             `yaml:"sort_order"`
	ExcludeParams []string             `yaml:"exclude_params"`
	IndexedFields []IndexedFieldConfig `yaml:"indexed_fields"`
	// BaseURL prefixes every facet link
	BaseURL                   string      `yaml:"base_url"`
	UseDefaultSortWithKeyword bool        `yaml:"use_default_sort_with_keyword"`
	DefaultPageSize           int         `yaml:"default_page_size"`
	Price                     PriceConfig `yaml:"price"`
}

// FieldFacetConfig defines a term facet; an empty label is derived from the field
type FieldFacetConfig struct {
	Field string `yaml:"field"`
	Label string `yaml:"label"`
}

// QueryFacetConfig defines a facet counted over fixed range tokens
type QueryFacetConfig struct {
	Field   string   `yaml:"field"`
	Label   string   `yaml:"label"`
	Queries []string `yaml:"queries"`
}

// DateFacetConfig defines a bucketed date facet starting now
type DateFacetConfig struct {
	Field         string `yaml:"field"`
	Label         string `yaml:"label"`
	LookAheadDays int    `yaml:"look_ahead_days"`
	// GapBy is "month" or "year"
	GapBy     string `yaml:"gap_by"`
	GapAmount int    `yaml:"gap_amount"`
}

// SortOption is one user-selectable result order
type SortOption struct {
	Field   string `yaml:"field"`
	Label   string `yaml:"label"`
	Reverse bool   `yaml:"reverse"`
	Default bool   `yaml:"default"`
}

// IndexedFieldConfig describes an index field a request may filter on
type IndexedFieldConfig struct {
	Name    string `yaml:"name"`
	Faceted bool   `yaml:"faceted"`
}

// PriceConfig holds settings used by price facets
type PriceConfig struct {
	// FacetRoot is the per-currency price field prefix, e.g. min_price
	FacetRoot       string            `yaml:"facet_root"`
	SliderMax       int               `yaml:"slider_max"`
	DefaultCurrency string            `yaml:"default_currency"`
	Symbols         map[string]string `yaml:"symbols"`
}

// Currency normalizes a currency code, falling back to the default
func (p PriceConfig) Currency(code string) string {
	if code == "" {
		return strings.ToUpper(p.DefaultCurrency)
	}
	return strings.ToUpper(code)
}

// Symbol returns the display symbol for a currency code
func (p PriceConfig) Symbol(code string) string {
	if s, ok := p.Symbols[p.Currency(code)]; ok {
		return s
	}
	return "$"
}

// LoadFacetsConfig reads facet tables from a YAML file
func LoadFacetsConfig(path string) (*FacetsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facets config: %w", err)
	}
	return ParseFacetsConfig(data)
}

// ParseFacetsConfig decodes and validates YAML facet tables
func ParseFacetsConfig(data []byte) (*FacetsConfig, error) {
	var cfg FacetsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse facets config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the tables for values the searcher cannot use
func (c *FacetsConfig) Validate() error {
	for i := range c.DateFacets {
		df := &c.DateFacets[i]
		switch df.GapBy {
		case "":
			df.GapBy = "month"
		case "month", "year":
		default:
			return fmt.Errorf("date facet %s: unsupported gap_by %q", df.Field, df.GapBy)
		}
		if df.GapAmount <= 0 {
			df.GapAmount = 1
		}
	}

	defaults := 0
	for _, opt := range c.SortOptions {
		if opt.Field == "" {
			return fmt.Errorf("sort option %q has no field", opt.Label)
		}
		if opt.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%d sort options flagged default, at most one allowed", defaults)
	}

	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	return nil
}

var defaultCurrencies = []string{"CAD", "USD", "NZD", "EUR", "USL", "GBP", "AUD", "CHF"}

// DefaultFacetsConfig returns the built-in trip search tables
func DefaultFacetsConfig() *FacetsConfig {
	priceRanges := []string{"[0 TO 500]", "[500 TO 1000]", "[1001 TO 2000]", "[2001 TO *]"}

	cfg := &FacetsConfig{
		FieldFacets: []FieldFacetConfig{
			{Field: "region"},
			{Field: "country"},
			{Field: "trip_style"},
			{Field: "service_level"},
		},
		QueryFacets: []QueryFacetConfig{
			{Field: "duration", Queries: []string{"[* TO 5]", "[6 TO 10]", "[11 TO 15]", "[16 TO 25]", "[26 TO 40]", "[41 TO *]"}},
		},
		DateFacets: []DateFacetConfig{
			{Field: "departure_dates", LookAheadDays: 365, GapBy: "month", GapAmount: 1},
			{Field: "return_dates", LookAheadDays: 365, GapBy: "month", GapAmount: 1},
		},
		SortOptions: []SortOption{
			{Field: "priority", Label: "Relevance", Default: true},
			{Field: "byName", Label: "Trip Name (A-Z)"},
			{Field: "byName", Label: "Trip Name (Z-A)", Reverse: true},
			{Field: "duration", Label: "Duration (High to Low)", Reverse: true},
			{Field: "duration", Label: "Duration (Low to High)"},
		},
		IndexedFields: []IndexedFieldConfig{
			{Name: "text"},
			{Name: "name"},
			{Name: "priority"},
			{Name: "byName"},
			{Name: "region", Faceted: true},
			{Name: "country", Faceted: true},
			{Name: "trip_style", Faceted: true},
			{Name: "service_level", Faceted: true},
			{Name: "duration", Faceted: true},
			{Name: "departure_dates", Faceted: true},
			{Name: "return_dates", Faceted: true},
		},
		BaseURL:         "/trips",
		DefaultPageSize: 20,
		Price: PriceConfig{
			FacetRoot:       "min_price",
			SliderMax:       4000,
			DefaultCurrency: "CAD",
			Symbols: map[string]string{
				"CAD": "$", "USD": "$", "NZD": "$", "AUD": "$", "USL": "$",
				"EUR": "&euro;", "GBP": "&pound;", "CHF": "CHF ",
			},
		},
	}

	for _, code := range defaultCurrencies {
		promotion := "promotion_" + code
		price := cfg.Price.FacetRoot + "_" + code
		cfg.FieldFacets = append(cfg.FieldFacets, FieldFacetConfig{Field: promotion, Label: "Promotions"})
		cfg.QueryFacets = append(cfg.QueryFacets, QueryFacetConfig{Field: price, Label: "Price", Queries: priceRanges})
		cfg.IndexedFields = append(cfg.IndexedFields,
			IndexedFieldConfig{Name: promotion, Faceted: true},
			IndexedFieldConfig{Name: price, Faceted: true},
		)
	}
	for _, code := range defaultCurrencies {
		cfg.SortOptions = append(cfg.SortOptions, SortOption{Field: cfg.Price.FacetRoot + "_" + code + "_exact", Label: "Price (Low to High)"})
	}
	for _, code := range defaultCurrencies {
		cfg.SortOptions = append(cfg.SortOptions, SortOption{Field: cfg.Price.FacetRoot + "_" + code + "_exact", Label: "Price (High to Low)", Reverse: true})
	}

	cfg.FieldFacets = append(cfg.FieldFacets, FieldFacetConfig{Field: "activity"}, FieldFacetConfig{Field: "tag"})
	cfg.IndexedFields = append(cfg.IndexedFields,
		IndexedFieldConfig{Name: "activity", Faceted: true},
		IndexedFieldConfig{Name: "tag", Faceted: true},
	)

	cfg.SortOrder = []string{"region", "country", "departure_dates", "return_dates", "duration", "trip_style", "service_level"}
	for _, code := range defaultCurrencies {
		cfg.SortOrder = append(cfg.SortOrder, cfg.Price.FacetRoot+"_"+code, "promotion_"+code)
	}
	cfg.SortOrder = append(cfg.SortOrder, "activity", "tag")

	return cfg
}

// FieldLabel returns the configured label of a field facet
func (c *FacetsConfig) FieldLabel(field string) (string, bool) {
	for _, f := range c.FieldFacets {
		if f.Field == field && f.Label != "" {
			return f.Label, true
		}
	}
	return "", false
}

// QueryLabel returns the configured label of a query facet
func (c *FacetsConfig) QueryLabel(field string) (string, bool) {
	for _, f := range c.QueryFacets {
		if f.Field == field && f.Label != "" {
			return f.Label, true
		}
	}
	return "", false
}

// DateLabel returns the configured label of a date facet
func (c *FacetsConfig) DateLabel(field string) (string, bool) {
	for _, f := range c.DateFacets {
		if f.Field == field && f.Label != "" {
			return f.Label, true
		}
	}
	return "", false
}
