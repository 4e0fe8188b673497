package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/auth"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

// UsersHandler manages accounts and overview allow-lists. Admin only.
type UsersHandler struct {
	DB     *sql.DB
	Logger *zap.Logger
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Role != model.RoleAdmin && req.Role != model.RoleUser {
		req.Role = model.RoleUser
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	user, err := store.CreateUser(r.Context(), h.DB, req.Username, hash, req.Role)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, user)
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "password is required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if err := store.SetUserPassword(r.Context(), h.DB, id, hash); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	if id == currentUser(r.Context()).ID {
		jsonError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

// GetAllowedOverviews returns a user's overview allow-list.
func (h *UsersHandler) GetAllowedOverviews(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	ids, err := store.GetAllowedOverviewIDs(r.Context(), h.DB, id)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	jsonResponse(w, http.StatusOK, map[string][]int64{"overview_ids": ids})
}

// SetAllowedOverviews replaces a user's overview allow-list.
func (h *UsersHandler) SetAllowedOverviews(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var req struct {
		OverviewIDs []int64 `json:"overview_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.SetAllowedOverviews(r.Context(), h.DB, id, req.OverviewIDs); err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}
