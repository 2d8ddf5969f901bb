package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/api/request"
	"github.com/edvin/dataconnect/internal/api/response"
)

// SchemaLister lists databases and tables through the schema cache.
type SchemaLister interface {
	ListDatabases(ctx context.Context, p access.Principal, integrationID, search string, limit int) ([]string, error)
	ListTables(ctx context.Context, p access.Principal, integrationID, database, search string, limit int) ([]string, error)
}

// Schema handles schema discovery endpoints.
type Schema struct {
	svc SchemaLister
}

func NewSchema(svc SchemaLister) *Schema {
	return &Schema{svc: svc}
}

func (h *Schema) Databases(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	listing, err := request.ParseListing(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}

	names, err := h.svc.ListDatabases(r.Context(), p, id, listing.Search, listing.Limit)
	if err != nil {
		writeSchemaError(w, r, err)
		return
	}
	response.WriteList(w, names)
}

func (h *Schema) Tables(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	database := chi.URLParam(r, "database")
	if database == "" {
		response.WriteError(w, http.StatusBadRequest, "missing database")
		return
	}
	listing, err := request.ParseListing(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}

	names, err := h.svc.ListTables(r.Context(), p, id, database, listing.Search, listing.Limit)
	if err != nil {
		writeSchemaError(w, r, err)
		return
	}
	response.WriteList(w, names)
}

// writeSchemaError reports remote discovery failures as 502. Access errors
// keep their usual status.
func writeSchemaError(w http.ResponseWriter, r *http.Request, err error) {
	if isAccessError(err) {
		writeServiceError(w, r, err)
		return
	}
	response.WriteError(w, http.StatusBadGateway, err.Error())
}
