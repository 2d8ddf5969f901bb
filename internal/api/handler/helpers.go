package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/access"
	mw "github.com/edvin/dataconnect/internal/api/middleware"
	"github.com/edvin/dataconnect/internal/api/response"
	"github.com/edvin/dataconnect/internal/core"
	"github.com/edvin/dataconnect/internal/model"
)

// writeServiceError maps service errors to status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrUnauthorized):
		response.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrInvalidOwnership):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func isAccessError(err error) bool {
	return errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrUnauthorized)
}

// principal returns the authenticated caller or writes 401.
func principal(w http.ResponseWriter, r *http.Request) (access.Principal, bool) {
	p, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.WriteError(w, http.StatusUnauthorized, "missing principal")
	}
	return p, ok
}
