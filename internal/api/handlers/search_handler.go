package handlers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/schema"

	"github.com/zatekoja/facetedsearch/internal/application/services"
	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/domain/repositories"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
	"github.com/zatekoja/facetedsearch/pkg/config"
	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
)

// Request parameters that never act as filters
var controlParams = []string{"page", "size", "sort_by", "currency"}

// searchParams are the fixed query parameters of the search endpoints
type searchParams struct {
	Keywords string `schema:"q"`
	OrderBy  string `schema:"order_by"`
	Page     int    `schema:"page"`
	Size     int    `schema:"size"`
	SortBy   string `schema:"sort_by"`
	Currency string `schema:"currency"`
}

// SearchHandler handles faceted search HTTP requests
type SearchHandler struct {
	backend     repositories.SearchBackend
	backendName string
	facets      *config.FacetsConfig
	analytics   *services.SearchAnalyticsService
	metrics     *observability.Metrics
	timeout     time.Duration
	decoder     *schema.Decoder
}

// NewSearchHandler creates a new search handler. analytics and metrics may be nil.
func NewSearchHandler(
	backend repositories.SearchBackend,
	backendName string,
	facets *config.FacetsConfig,
	analytics *services.SearchAnalyticsService,
	metrics *observability.Metrics,
	timeout time.Duration,
) *SearchHandler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &SearchHandler{
		backend:     backend,
		backendName: backendName,
		facets:      facets,
		analytics:   analytics,
		metrics:     metrics,
		timeout:     timeout,
		decoder:     decoder,
	}
}

type facetItemResponse struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	Count      int    `json:"count"`
	Selected   bool   `json:"selected"`
	Year       int    `json:"year,omitempty"`
	URL        string `json:"url"`
	RemovalURL string `json:"removal_url,omitempty"`
}

type facetResponse struct {
	Field       string              `json:"field"`
	Label       string              `json:"label"`
	LabelPlural string              `json:"label_plural"`
	Kind        entities.FacetKind  `json:"kind"`
	Items       []facetItemResponse `json:"items"`
}

type breadcrumbResponse struct {
	Field      string `json:"field"`
	Value      string `json:"value"`
	Label      string `json:"label"`
	RemovalURL string `json:"removal_url"`
}

type searchResponse struct {
	TotalCount   int                      `json:"total_count"`
	Page         int                      `json:"page"`
	PageSize     int                      `json:"page_size"`
	Documents    []map[string]interface{} `json:"documents"`
	Facets       []facetResponse          `json:"facets"`
	Breadcrumbs  []breadcrumbResponse     `json:"breadcrumbs"`
	SortOptions  []entities.SortLink      `json:"sort_options"`
	URLParam     string                   `json:"url_param"`
	SearchTimeMs float64                  `json:"search_time_ms"`
}

type priceWidgetResponse struct {
	Currency   string          `json:"currency"`
	PriceField string          `json:"price_field"`
	SliderMax  int             `json:"slider_max"`
	Facets     []facetResponse `json:"facets"`
}

// Search handles GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, err := h.decode(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	searcher, result, err := h.run(ctx, r, params)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	list, err := searcher.Facets()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	urlParam, err := searcher.URLParam()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	sortOptions, err := searcher.SortOptions()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	resp := searchResponse{
		TotalCount:   result.TotalCount,
		Page:         max(params.Page, 1),
		PageSize:     searcher.Query().Rows,
		Documents:    result.Documents,
		Facets:       facetsResponse(list, list.Facets),
		Breadcrumbs:  []breadcrumbResponse{},
		SortOptions:  sortOptions,
		URLParam:     urlParam,
		SearchTimeMs: result.SearchTimeMs,
	}
	if resp.Documents == nil {
		resp.Documents = []map[string]interface{}{}
	}
	for _, item := range list.SelectedItems() {
		resp.Breadcrumbs = append(resp.Breadcrumbs, breadcrumbResponse{
			Field:      item.Field,
			Value:      item.Value,
			Label:      item.Label,
			RemovalURL: list.ItemRemovalURL(item),
		})
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// Facet handles GET /api/facets/{field}. The price facet root renders the
// price widget for the requested currency.
func (h *SearchHandler) Facet(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	if field == "" {
		respondWithError(w, http.StatusBadRequest, "facet field is required")
		return
	}

	params, err := h.decode(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	switch params.SortBy {
	case "", services.SortByValue, services.SortByCount:
	default:
		respondWithError(w, http.StatusBadRequest, "sort_by must be value or count")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	searcher, _, err := h.run(ctx, r, params)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	list, err := searcher.Facets()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if field == h.facets.Price.FacetRoot {
		widget, err := services.BuildPriceWidget(ctx, list, h.facets.Price, params.Currency, params.SortBy)
		if err != nil {
			respondFacetError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, priceWidgetResponse{
			Currency:   widget.Currency,
			PriceField: widget.PriceField,
			SliderMax:  widget.SliderMax,
			Facets:     facetsResponse(list, widget.Facets),
		})
		return
	}

	facets, err := services.SelectFacets(ctx, list, field, params.SortBy)
	if err != nil {
		respondFacetError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"facets": facetsResponse(list, facets),
	})
}

func respondFacetError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		respondWithJSON(w, http.StatusNotFound, map[string]interface{}{"facets": nil})
		return
	}
	respondWithAppError(w, r, err)
}

func (h *SearchHandler) decode(r *http.Request) (searchParams, error) {
	var params searchParams
	if err := h.decoder.Decode(&params, r.URL.Query()); err != nil {
		return params, apperrors.NewValidationError("invalid query parameters")
	}
	if params.Page < 0 || params.Size < 0 {
		return params, apperrors.NewValidationError("page and size must not be negative")
	}
	return params, nil
}

// run executes one search for the request and records metrics and analytics
func (h *SearchHandler) run(ctx context.Context, r *http.Request, params searchParams) (*services.Searcher, *entities.SearchResult, error) {
	filters := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) == 0 || slices.Contains(controlParams, key) {
			continue
		}
		filters[key] = values[0]
	}

	searcher := services.NewSearcher(h.backend, h.facets)
	start := time.Now()
	result, err := searcher.Search(ctx, services.SearchRequest{
		Filters:  filters,
		Keywords: params.Keywords,
		OrderBy:  params.OrderBy,
		Page:     params.Page,
		PageSize: params.Size,
	})
	latency := time.Since(start)

	resultCount := 0
	if result != nil {
		resultCount = result.TotalCount
	}
	observability.RecordSearchMetric(ctx, h.metrics, h.backendName, resultCount, latency, err)
	if err != nil {
		return nil, nil, err
	}

	if h.analytics != nil && r.Header.Get(services.WarmingHeader) == "" {
		h.analytics.TrackSearch(ctx, services.NewSearchEvent(searcher, result, latency))
	}
	return searcher, result, nil
}

func facetsResponse(list *entities.FacetList, facets []*entities.Facet) []facetResponse {
	out := make([]facetResponse, 0, len(facets))
	for _, facet := range facets {
		fr := facetResponse{
			Field:       facet.Field,
			Label:       facet.Label,
			LabelPlural: facet.LabelPlural,
			Kind:        facet.Kind,
			Items:       make([]facetItemResponse, 0, len(facet.Items)),
		}
		for _, item := range facet.Items {
			ir := facetItemResponse{
				Value:    item.Value,
				Label:    item.Label,
				Count:    item.Count,
				Selected: item.IsSelected,
				Year:     item.Year,
				URL:      list.ItemURL(item),
			}
			if item.IsSelected {
				ir.RemovalURL = list.ItemRemovalURL(item)
			}
			fr.Items = append(fr.Items, ir)
		}
		out = append(out, fr)
	}
	return out
}
