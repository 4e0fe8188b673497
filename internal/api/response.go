package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/inventory"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// serviceError maps service errors to HTTP responses. Unknown errors are
// logged and reported as a plain internal error.
func serviceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, inventory.ErrNotAllowed):
		jsonError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, inventory.ErrNoPriorState):
		jsonError(w, http.StatusBadRequest, "entry has no prior state to restore")
	case errors.Is(err, inventory.ErrInsufficientStock):
		jsonError(w, http.StatusConflict, "not enough stock")
	case errors.Is(err, inventory.ErrAlreadyReturned):
		jsonError(w, http.StatusConflict, "already returned")
	case errors.Is(err, inventory.ErrInvalidQuantity):
		jsonError(w, http.StatusBadRequest, "quantity must be positive")
	case errors.Is(err, inventory.ErrQuickAdjustDisabled):
		jsonError(w, http.StatusBadRequest, "quick adjust is disabled for this overview")
	default:
		logger.Error("request failed", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
