package api

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/access"
	"github.com/mlenko/lagerdb/internal/export"
	"github.com/mlenko/lagerdb/internal/inventory"
	"github.com/mlenko/lagerdb/internal/labels"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/query"
	"github.com/mlenko/lagerdb/internal/store"
)

// ItemsHandler serves the dashboard query, item mutations, and label
// artifacts.
type ItemsHandler struct {
	DB      *sql.DB
	Service *inventory.Service
	Labels  labels.Generator
	Logger  *zap.Logger
}

// queryParams maps the request query string onto engine parameters.
// Values stay raw strings; the engine normalizes them.
func queryParams(r *http.Request) query.Params {
	q := r.URL.Query()
	return query.Params{
		Q:               q.Get("q"),
		Category:        q.Get("category"),
		Tag:             q.Get("tag"),
		StorageLocation: q.Get("storage_location"),
		LocationLetter:  q.Get("location_letter"),
		LocationNumber:  q.Get("location_number"),
		OnlyLow:         q.Get("only_low"),
		Sort:            q.Get("sort"),
		Order:           q.Get("order"),
		Page:            q.Get("page"),
		PageSize:        q.Get("page_size"),
	}
}

// visibleOverview loads an overview the caller may see, or nil.
func (h *ItemsHandler) visibleOverview(w http.ResponseWriter, r *http.Request) *model.Overview {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return nil
	}
	visible, err := access.CanSee(r.Context(), h.DB, currentUser(r.Context()), id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return nil
	}
	if !visible {
		jsonError(w, http.StatusNotFound, "not found")
		return nil
	}
	overview, err := store.GetOverview(r.Context(), h.DB, id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return nil
	}
	return overview
}

// Query serves one dashboard page of an overview.
func (h *ItemsHandler) Query(w http.ResponseWriter, r *http.Request) {
	overview := h.visibleOverview(w, r)
	if overview == nil {
		return
	}

	result, err := query.List(r.Context(), h.DB, overview, queryParams(r))
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Export streams the full filtered item set as CSV.
func (h *ItemsHandler) Export(w http.ResponseWriter, r *http.Request) {
	overview := h.visibleOverview(w, r)
	if overview == nil {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", overview.Slug+"-items.csv"))
	if err := export.Items(r.Context(), h.DB, w, overview, queryParams(r)); err != nil {
		h.Logger.Error("exporting items", zap.Error(err))
	}
}

func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var in inventory.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := h.Service.CreateItem(r.Context(), currentUser(r.Context()), id, in)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	item, err := h.loadVisible(r, id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	h.respondItem(w, r, item)
}

// GetByBarcode resolves a scanned barcode to its item.
func (h *ItemsHandler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	item, err := store.GetItemByBarcode(r.Context(), h.DB, code)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	item, err = h.loadVisible(r, item.ID)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	h.respondItem(w, r, item)
}

// loadVisible fetches an item and enforces overview visibility.
func (h *ItemsHandler) loadVisible(r *http.Request, id int64) (*model.Item, error) {
	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil || !item.IsActive {
		return nil, inventory.ErrNotFound
	}
	if item.OverviewID != nil {
		visible, err := access.CanSee(r.Context(), h.DB, currentUser(r.Context()), *item.OverviewID)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, inventory.ErrNotFound
		}
	} else if !currentUser(r.Context()).IsAdmin() {
		return nil, inventory.ErrNotFound
	}
	return item, nil
}

// respondItem fills the joined display fields before writing the item.
func (h *ItemsHandler) respondItem(w http.ResponseWriter, r *http.Request, item *model.Item) {
	names, err := store.GetItemTagNames(r.Context(), h.DB, item.ID)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	item.TagNames = names

	open, err := store.BorrowedOpen(r.Context(), h.DB, item.ID)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	item.BorrowedOpen = open

	jsonResponse(w, http.StatusOK, item)
}

func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var in inventory.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := h.Service.UpdateItem(r.Context(), currentUser(r.Context()), id, in)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

func (h *ItemsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Service.AdjustQuantity(r.Context(), currentUser(r.Context()), id, req.Delta)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

func (h *ItemsHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var req struct {
		OverviewID int64 `json:"overview_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Service.MoveItem(r.Context(), currentUser(r.Context()), id, req.OverviewID)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

func (h *ItemsHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var in inventory.BorrowInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.Service.Borrow(r.Context(), currentUser(r.Context()), id, in)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, record)
}

// Return closes a borrow record.
func (h *ItemsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	record, err := h.Service.Return(r.Context(), currentUser(r.Context()), id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, record)
}

// ListBorrows returns an item's borrow records, open ones first filtered
// with ?open=1.
func (h *ItemsHandler) ListBorrows(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	if _, err := h.loadVisible(r, id); err != nil {
		serviceError(w, h.Logger, err)
		return
	}

	records, err := store.ListBorrows(r.Context(), h.DB, id, r.URL.Query().Get("open") == "1")
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, records)
}

// History returns an item's audit trail, newest first.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	if _, err := h.loadVisible(r, id); err != nil {
		serviceError(w, h.Logger, err)
		return
	}

	entries, err := store.ListItemHistory(r.Context(), h.DB, id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Label serves a PNG label artifact, generating it on first access.
func (h *ItemsHandler) Label(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	item, err := h.loadVisible(r, id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}

	if err := h.Labels.Ensure(item.ID, item.Barcode, false); err != nil {
		serviceError(w, h.Logger, err)
		return
	}

	var path string
	switch chi.URLParam(r, "kind") {
	case "qr":
		path = h.Labels.QRPath(item.ID)
	case "barcode":
		path = h.Labels.BarcodePath(item.ID)
	default:
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}
