package middleware

import (
	"context"
	"net/http"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/api/response"
)

// GetPrincipal returns the authenticated caller. ok is false outside Auth.
func GetPrincipal(ctx context.Context) (access.Principal, bool) {
	p, ok := ctx.Value(principalKey).(access.Principal)
	return p, ok
}

// IsPlatformAdmin reports whether the caller holds an unscoped admin key.
func IsPlatformAdmin(ctx context.Context) bool {
	p, ok := GetPrincipal(ctx)
	return ok && p.IsPlatformAdmin && p.ClientID == ""
}

// RequirePlatformAdmin returns middleware that rejects non-admin callers.
func RequirePlatformAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsPlatformAdmin(r.Context()) {
				response.WriteError(w, http.StatusForbidden, "platform admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
