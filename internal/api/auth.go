package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/auth"
	"github.com/mlenko/lagerdb/internal/store"
)

// AuthHandler handles login and password changes.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	Logger    *zap.Logger
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if user == nil || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.IssueToken(h.JWTSecret, user)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "new password must not be empty")
		return
	}

	user := currentUser(r.Context())
	if auth.CheckPassword(user.PasswordHash, req.CurrentPassword) != nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		serviceError(w, h.Logger, err)
		return
	}
	if err := store.SetUserPassword(r.Context(), h.DB, user.ID, hash); err != nil {
		serviceError(w, h.Logger, err)
		return
	}

	jsonResponse(w, http.StatusNoContent, nil)
}

// idParam parses a numeric chi route parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
