package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/store"
)

// TaxonomyHandler manages categories, tags, tag types, and storage
// locations. Reads are open to every authenticated user; writes are
// admin only (enforced in the router).
type TaxonomyHandler struct {
	DB     *sql.DB
	Logger *zap.Logger
}

type nameInput struct {
	Name string `json:"name"`
}

func (h *TaxonomyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, categories)
}

func (h *TaxonomyHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(r, &in); err != nil || in.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}
	category, err := store.CreateCategory(r.Context(), h.DB, in.Name)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, category)
}

func (h *TaxonomyHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var in nameInput
	if err := decodeJSON(r, &in); err != nil || in.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := store.UpdateCategory(r.Context(), h.DB, id, in.Name); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *TaxonomyHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *TaxonomyHandler) ListTagTypes(w http.ResponseWriter, r *http.Request) {
	types, err := store.ListTagTypes(r.Context(), h.DB)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, types)
}

func (h *TaxonomyHandler) CreateTagType(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(r, &in); err != nil || in.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}
	tagType, err := store.CreateTagType(r.Context(), h.DB, in.Name)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, tagType)
}

type tagInput struct {
	Name   string `json:"name"`
	TypeID *int64 `json:"type_id"`
}

// ListTags returns tags, optionally filtered with ?type=<id>.
func (h *TaxonomyHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	var typeID *int64
	if raw := r.URL.Query().Get("type"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			typeID = &id
		}
	}
	tags, err := store.ListTags(r.Context(), h.DB, typeID)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, tags)
}

func (h *TaxonomyHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var in tagInput
	if err := decodeJSON(r, &in); err != nil || in.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}
	tag, err := store.CreateTag(r.Context(), h.DB, in.Name, in.TypeID)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, tag)
}

func (h *TaxonomyHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var in tagInput
	if err := decodeJSON(r, &in); err != nil || in.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := store.UpdateTag(r.Context(), h.DB, id, in.Name, in.TypeID); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *TaxonomyHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	if err := store.DeleteTag(r.Context(), h.DB, id); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

type locationInput struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

func (h *TaxonomyHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := store.ListStorageLocations(r.Context(), h.DB)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, locations)
}

func (h *TaxonomyHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var in locationInput
	if err := decodeJSON(r, &in); err != nil || in.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}
	location, err := store.CreateStorageLocation(r.Context(), h.DB, in.Name, in.ParentID)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, location)
}

func (h *TaxonomyHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var in locationInput
	if err := decodeJSON(r, &in); err != nil || in.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := store.UpdateStorageLocation(r.Context(), h.DB, id, in.Name, in.ParentID); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *TaxonomyHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	if err := store.DeleteStorageLocation(r.Context(), h.DB, id); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}
