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

// QueryRunner executes queries and connection tests for a caller.
type QueryRunner interface {
	Execute(ctx context.Context, p access.Principal, integrationID, query string, filter *model.DataSourceFilter) (*model.QueryResult, error)
	TestConnection(ctx context.Context, p access.Principal, integrationID string) (*model.ConnectionResult, error)
}

// Query handles query execution and connection tests.
type Query struct {
	svc QueryRunner
}

// NewQuery creates a new Query handler.
func NewQuery(svc QueryRunner) *Query {
	return &Query{svc: svc}
}

// Execute runs a card query. Remote failures are returned with status 200
// and success=false.
func (h *Query) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.ExecuteQuery
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, ok := principal(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Execute(r.Context(), p, id, req.Query, req.Filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

// Test checks connectivity of an integration.
func (h *Query) Test(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}

	res, err := h.svc.TestConnection(r.Context(), p, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}
