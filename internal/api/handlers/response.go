package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facetedsearch/pkg/errors"
)

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// statusForError maps an AppError type to an HTTP status
func statusForError(err error) int {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypePrecondition:
		return http.StatusConflict
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	logger := observability.LoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}

	var appErr *apperrors.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		respondWithError(w, status, appErr.Message)
		return
	}
	respondWithError(w, status, "internal server error")
}
