package handler

import (
	"net/http"

	"github.com/edvin/dataconnect/internal/api/response"
	"github.com/edvin/dataconnect/internal/model"
)

// PlatformKinds lists the platform kinds with a registered connector.
func PlatformKinds(kinds func() []model.PlatformKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteList(w, kinds())
	}
}
