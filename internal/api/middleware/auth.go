package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/api/response"
	"github.com/edvin/dataconnect/internal/core"
)

type contextKey string

const principalKey contextKey = "principal"

// Authenticator resolves a raw API key to the principal it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*access.Principal, error)
}

// Auth returns a middleware that resolves the caller's API key from the
// Authorization bearer token or the X-API-Key header.
func Auth(keys Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				key = r.Header.Get("X-API-Key")
			}
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			p, err := keys.Authenticate(r.Context(), key)
			if err != nil {
				if !errors.Is(err, core.ErrInvalidAPIKey) {
					zerolog.Ctx(r.Context()).Error().Err(err).Msg("api key lookup failed")
				}
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *p)))
		})
	}
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// WithPrincipal stores the caller's principal in ctx.
func WithPrincipal(ctx context.Context, p access.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
