package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/zatekoja/doctordirectory/backend/pkg/errors"
)

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

// respondWithAppError maps an engine error onto an HTTP status
func respondWithAppError(w http.ResponseWriter, err error) {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErrorMessage(err))
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErrorMessage(err))
	case apperrors.ErrorTypeExternal:
		respondWithError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func appErrorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
