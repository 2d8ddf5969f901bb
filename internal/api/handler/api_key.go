package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/api/request"
	"github.com/edvin/dataconnect/internal/api/response"
	"github.com/edvin/dataconnect/internal/model"
)

// APIKeyStore is the API key service as used by the handlers.
type APIKeyStore interface {
	Create(ctx context.Context, name string, p access.Principal) (*model.APIKey, string, error)
	GetByID(ctx context.Context, id string) (*model.APIKey, error)
	List(ctx context.Context) ([]model.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// APIKey handles API key management endpoints.
type APIKey struct {
	svc APIKeyStore
}

// NewAPIKey creates a new APIKey handler.
func NewAPIKey(svc APIKeyStore) *APIKey {
	return &APIKey{svc: svc}
}

// Create issues a new API key. The raw key is returned once in the response.
func (h *APIKey) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAPIKey
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.PlatformAdmin && req.CompanyID == "" && req.ClientID == "" && len(req.GroupIDs) == 0 {
		response.WriteError(w, http.StatusBadRequest, "validation error: key needs a company, client, group or platform admin scope")
		return
	}

	key, rawKey, err := h.svc.Create(r.Context(), req.Name, access.Principal{
		CompanyID:       req.CompanyID,
		ClientID:        req.ClientID,
		GroupIDs:        req.GroupIDs,
		IsPlatformAdmin: req.PlatformAdmin,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"id":             key.ID,
		"name":           key.Name,
		"key":            rawKey,
		"key_prefix":     key.KeyPrefix,
		"company_id":     key.CompanyID,
		"client_id":      key.ClientID,
		"group_ids":      key.GroupIDs,
		"platform_admin": key.PlatformAdmin,
		"created_at":     key.CreatedAt,
	}
	response.WriteJSON(w, http.StatusCreated, resp)
}

// List lists all API keys.
func (h *APIKey) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteList(w, keys)
}

// Get retrieves an API key by ID.
func (h *APIKey) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, key)
}

// Revoke marks an API key as revoked.
func (h *APIKey) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Revoke(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
