package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/facetedsearch/internal/application/services"
	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
)

func TestRespondWithAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", apperrors.NewNotFoundError("facet not found"), http.StatusNotFound, `{"error":"facet not found"}`},
		{"validation", apperrors.NewValidationError("bad page"), http.StatusBadRequest, `{"error":"bad page"}`},
		{"search not run", fmt.Errorf("facets: %w", services.ErrNoSearchPerformed), http.StatusConflict, `{"error":"` + services.ErrNoSearchPerformed.Message + `"}`},
		{"backend", apperrors.NewExternalError("search backend failed", errors.New("timeout")), http.StatusBadGateway, `{"error":"search backend failed"}`},
		{"internal", apperrors.NewInternalError("boom", nil), http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"plain", errors.New("boom"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithAppError(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}
