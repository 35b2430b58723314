package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/copilot-ai/copilot/internal/prompt"
	"github.com/copilot-ai/copilot/internal/provider"
	"github.com/copilot-ai/copilot/internal/session"
	"github.com/copilot-ai/copilot/internal/storage"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeQuotaExceeded  = "QUOTA_EXCEEDED"
	ErrCodeProviderError  = "PROVIDER_ERROR"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeSuccess writes a success response.
func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeServiceError maps service-layer sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, prompt.ErrNotFound),
		errors.Is(err, session.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, session.ErrActionTaken):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, session.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, ErrCodeQuotaExceeded, err.Error())
	case errors.Is(err, provider.ErrNoProviderAvailable):
		writeError(w, http.StatusServiceUnavailable, ErrCodeProviderError, err.Error())
	case errors.Is(err, provider.ErrMalformedOutput):
		writeError(w, http.StatusBadGateway, ErrCodeProviderError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
