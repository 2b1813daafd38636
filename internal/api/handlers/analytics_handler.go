package handlers

import (
	"net/http"
	"strconv"

	"github.com/zatekoja/facetedsearch/internal/application/services"
)

// AnalyticsHandler exposes aggregated search analytics
type AnalyticsHandler struct {
	analytics *services.SearchAnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *services.SearchAnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// ZeroResults handles GET /api/analytics/zero-results
func (h *AnalyticsHandler) ZeroResults(w http.ResponseWriter, r *http.Request) {
	events, err := h.analytics.GetZeroResultQueries(r.Context(), limitParam(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"searches": events,
		"count":    len(events),
	})
}

// TopKeywords handles GET /api/analytics/top-keywords
func (h *AnalyticsHandler) TopKeywords(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.GetTopKeywords(r.Context(), limitParam(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"keywords": stats,
		"count":    len(stats),
	})
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}
