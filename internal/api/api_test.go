package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/auth"
	"github.com/mlenko/lagerdb/internal/db"
	"github.com/mlenko/lagerdb/internal/inventory"
	"github.com/mlenko/lagerdb/internal/labels"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	svc := inventory.NewService(database, zap.NewNop(), labels.Noop{}, nil)
	router := NewRouter(database, testJWTSecret, svc, labels.Noop{}, zap.NewNop())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, database
}

func createUserWithPassword(t *testing.T, database *sql.DB, username, password, role string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user, err := store.CreateUser(context.Background(), database, username, hash, role)
	require.NoError(t, err)
	return user
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp.Token)
	return loginResp.Token
}

func doRequest(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server, database := setupTestServer(t)
	createUserWithPassword(t, database, "admin", "password", model.RoleAdmin)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/api/overviews")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestItemFlow(t *testing.T) {
	server, database := setupTestServer(t)
	createUserWithPassword(t, database, "admin", "password", model.RoleAdmin)
	token := login(t, server, "admin", "password")

	// Create an overview.
	resp := doRequest(t, "POST", server.URL+"/api/overviews", token, map[string]any{
		"name": "Lab", "slug": "lab", "is_active": true,
		"features": map[string]any{"enable_quick_adjust": true, "enable_borrow": true},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	overview := decodeBody[model.Overview](t, resp)

	// Create an item in it.
	resp = doRequest(t, "POST", server.URL+"/api/overviews/"+itoa(overview.ID)+"/items", token, map[string]any{
		"name": "Multimeter", "quantity": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decodeBody[model.Item](t, resp)
	require.NotEmpty(t, item.Barcode)

	// The dashboard query finds it.
	resp = doRequest(t, "GET", server.URL+"/api/overviews/"+itoa(overview.ID)+"/items?q=multi", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeBody[struct {
		Total int          `json:"total"`
		Items []model.Item `json:"items"`
	}](t, resp)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "Multimeter", page.Items[0].Name)

	// Quick adjust.
	resp = doRequest(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/adjust", token, map[string]int{"delta": -1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adjusted := decodeBody[model.Item](t, resp)
	require.Equal(t, 4, adjusted.Quantity)

	// Borrow beyond stock is a conflict.
	resp = doRequest(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/borrow", token, map[string]any{
		"borrower": "ana", "quantity": 99,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// A valid borrow and its return.
	resp = doRequest(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/borrow", token, map[string]any{
		"borrower": "ana", "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	record := decodeBody[model.BorrowRecord](t, resp)

	resp = doRequest(t, "POST", server.URL+"/api/borrows/"+itoa(record.ID)+"/return", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, "POST", server.URL+"/api/borrows/"+itoa(record.ID)+"/return", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// The audit trail is visible.
	resp = doRequest(t, "GET", server.URL+"/api/items/"+itoa(item.ID)+"/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeBody[[]model.HistoryEntry](t, resp)
	require.Len(t, entries, 4) // returned, borrowed, quantity_adjusted, created
	require.Equal(t, model.ActionReturned, entries[0].Action)
}

func TestRegularUserVisibilityAndAdminGate(t *testing.T) {
	server, database := setupTestServer(t)
	ctx := context.Background()
	createUserWithPassword(t, database, "admin", "password", model.RoleAdmin)
	limited := createUserWithPassword(t, database, "limited", "password", model.RoleUser)

	adminToken := login(t, server, "admin", "password")

	resp := doRequest(t, "POST", server.URL+"/api/overviews", adminToken, map[string]any{
		"name": "Lab", "slug": "lab", "is_active": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	lab := decodeBody[model.Overview](t, resp)

	resp = doRequest(t, "POST", server.URL+"/api/overviews", adminToken, map[string]any{
		"name": "Office", "slug": "office", "is_active": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, store.SetAllowedOverviews(ctx, database, limited.ID, []int64{lab.ID}))
	userToken := login(t, server, "limited", "password")

	// The allow-list bounds the overview list.
	resp = doRequest(t, "GET", server.URL+"/api/overviews", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	visible := decodeBody[[]model.Overview](t, resp)
	require.Len(t, visible, 1)
	require.Equal(t, "Lab", visible[0].Name)

	// Admin surfaces are closed to regular users.
	resp = doRequest(t, "GET", server.URL+"/api/history", userToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRollbackEndpoint(t *testing.T) {
	server, database := setupTestServer(t)
	createUserWithPassword(t, database, "admin", "password", model.RoleAdmin)
	token := login(t, server, "admin", "password")

	resp := doRequest(t, "POST", server.URL+"/api/overviews", token, map[string]any{
		"name": "Lab", "slug": "lab", "is_active": true,
	})
	overview := decodeBody[model.Overview](t, resp)

	resp = doRequest(t, "POST", server.URL+"/api/overviews/"+itoa(overview.ID)+"/items", token, map[string]any{
		"name": "Probe", "quantity": 3,
	})
	item := decodeBody[model.Item](t, resp)

	resp = doRequest(t, "PUT", server.URL+"/api/items/"+itoa(item.ID), token, map[string]any{
		"name": "Probe v2", "quantity": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, "GET", server.URL+"/api/items/"+itoa(item.ID)+"/history", token, nil)
	entries := decodeBody[[]model.HistoryEntry](t, resp)
	require.Equal(t, model.ActionUpdated, entries[0].Action)

	resp = doRequest(t, "POST", server.URL+"/api/history/"+itoa(entries[0].ID)+"/rollback", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	restored := decodeBody[model.Item](t, resp)
	require.Equal(t, "Probe", restored.Name)
	require.Equal(t, 3, restored.Quantity)

	// Rolling back the creation entry has no prior state.
	resp = doRequest(t, "GET", server.URL+"/api/items/"+itoa(item.ID)+"/history", token, nil)
	entries = decodeBody[[]model.HistoryEntry](t, resp)
	created := entries[len(entries)-1]
	require.Equal(t, model.ActionCreated, created.Action)

	resp = doRequest(t, "POST", server.URL+"/api/history/"+itoa(created.ID)+"/rollback", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
