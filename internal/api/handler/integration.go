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

// IntegrationStore is the integration service as used by the handlers.
type IntegrationStore interface {
	Create(ctx context.Context, in *model.Integration) error
	GetByID(ctx context.Context, id string) (*model.Integration, error)
	UpdateConfig(ctx context.Context, id string, cfg map[string]string) error
	SetActive(ctx context.Context, id string, active bool) error
	SoftDelete(ctx context.Context, id string) error
	ListAvailable(ctx context.Context, companyID string) ([]model.Integration, error)
	ListAll(ctx context.Context) ([]model.Integration, error)
}

// Integration handles integration CRUD endpoints.
type Integration struct {
	svc      IntegrationStore
	resolver *access.Resolver
}

// NewIntegration creates a new Integration handler.
func NewIntegration(svc IntegrationStore, resolver *access.Resolver) *Integration {
	return &Integration{svc: svc, resolver: resolver}
}

// List returns the integrations available to a company. Callers may only
// list their own company unless they are platform admins, who get every
// integration when no company is given.
func (h *Integration) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	admin := p.IsPlatformAdmin && p.ClientID == ""

	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		companyID = p.CompanyID
	}
	if companyID == "" {
		if !admin {
			response.WriteError(w, http.StatusBadRequest, "company_id is required")
			return
		}
		list, err := h.svc.ListAll(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.WriteList(w, list)
		return
	}
	if companyID != p.CompanyID && !admin {
		response.WriteError(w, http.StatusForbidden, "no access to this company")
		return
	}

	list, err := h.svc.ListAvailable(r.Context(), companyID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteList(w, list)
}

// Create registers a new integration.
func (h *Integration) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateIntegration
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ownership, err := req.Ownership.Ownership()
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := &model.Integration{
		Name:      req.Name,
		Kind:      model.PlatformKind(req.Kind),
		Ownership: ownership,
		Config:    req.Config,
		IsActive:  true,
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	if err := h.svc.Create(r.Context(), in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, in)
}

// Get returns one integration if the caller may use it.
func (h *Integration) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}

	in, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !h.resolver.Allowed(r.Context(), p, in) {
		response.WriteError(w, http.StatusForbidden, "not authorized for integration")
		return
	}
	response.WriteJSON(w, http.StatusOK, in)
}

// UpdateConfig replaces an integration's configuration map.
func (h *Integration) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateIntegrationConfig
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateConfig(r.Context(), id, req.Config); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetActive enables or disables an integration.
func (h *Integration) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetIntegrationActive
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetActive(r.Context(), id, *req.Active); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete soft-deletes an integration.
func (h *Integration) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SoftDelete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
