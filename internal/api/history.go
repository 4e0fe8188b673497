package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/inventory"
	"github.com/mlenko/lagerdb/internal/store"
)

// HistoryHandler serves the admin history browser and rollback.
type HistoryHandler struct {
	DB      *sql.DB
	Service *inventory.Service
	Logger  *zap.Logger
}

// List returns recent history across all items, filterable by action,
// user, and free text. Admin only; capped by the store layer.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.HistoryFilter{
		Action: q.Get("action"),
		Query:  q.Get("q"),
	}
	if raw := q.Get("user"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			filter.UserID = id
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	entries, err := store.ListHistory(r.Context(), h.DB, filter)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Get returns one history entry with its full snapshots.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	entry, err := store.GetHistoryEntry(r.Context(), h.DB, id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if entry == nil {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	jsonResponse(w, http.StatusOK, entry)
}

// Rollback restores the item behind an entry to that entry's prior state.
func (h *HistoryHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	item, err := h.Service.Rollback(r.Context(), currentUser(r.Context()), id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}
