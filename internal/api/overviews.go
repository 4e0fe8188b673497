package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/access"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

// OverviewsHandler serves the overview list and admin overview management.
type OverviewsHandler struct {
	DB     *sql.DB
	Logger *zap.Logger
}

// List returns the overviews visible to the caller, in display order.
func (h *OverviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	overviews, err := access.VisibleOverviews(r.Context(), h.DB, currentUser(r.Context()))
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if overviews == nil {
		overviews = []model.Overview{}
	}
	jsonResponse(w, http.StatusOK, overviews)
}

func (h *OverviewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	visible, err := access.CanSee(r.Context(), h.DB, currentUser(r.Context()), id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if !visible {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	overview, err := store.GetOverview(r.Context(), h.DB, id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, overview)
}

// ListAll returns every overview, including inactive ones. Admin only.
func (h *OverviewsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	overviews, err := store.ListOverviews(r.Context(), h.DB, false)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, overviews)
}

type overviewInput struct {
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Description string         `json:"description"`
	Icon        string         `json:"icon"`
	Order       int            `json:"order"`
	IsActive    bool           `json:"is_active"`
	Features    model.Features `json:"features"`
	CategoryIDs []int64        `json:"category_ids"`
}

func (h *OverviewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in overviewInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Name == "" || in.Slug == "" {
		jsonError(w, http.StatusBadRequest, "name and slug are required")
		return
	}

	overview := &model.Overview{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Icon:        in.Icon,
		Order:       in.Order,
		IsActive:    in.IsActive,
		Features:    in.Features,
	}
	overview, err := store.CreateOverview(r.Context(), h.DB, overview)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if err := store.SetOverviewCategories(r.Context(), h.DB, overview.ID, in.CategoryIDs); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	overview.CategoryIDs = in.CategoryIDs

	jsonResponse(w, http.StatusCreated, overview)
}

func (h *OverviewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	var in overviewInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := store.GetOverview(r.Context(), h.DB, id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	existing.Name = in.Name
	existing.Slug = in.Slug
	existing.Description = in.Description
	existing.Icon = in.Icon
	existing.Order = in.Order
	existing.IsActive = in.IsActive
	existing.Features = in.Features

	if err := store.UpdateOverview(r.Context(), h.DB, existing); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if err := store.SetOverviewCategories(r.Context(), h.DB, existing.ID, in.CategoryIDs); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	existing.CategoryIDs = in.CategoryIDs

	jsonResponse(w, http.StatusOK, existing)
}
