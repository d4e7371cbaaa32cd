package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/bookloan-backend/api/responses"
	"github.com/angelmondragon/bookloan-backend/api/validators"
	"github.com/angelmondragon/bookloan-backend/internal/identity"
	"github.com/angelmondragon/bookloan-backend/pkg/logger"
)

type identityResolver interface {
	Resolve(ctx context.Context, token string) (identity.Resolved, error)
}

// Auth resolves the bearer token into an identity and seeds the request context with it.
func Auth(resolver identityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			resolved, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithIdentity(r.Context(), resolved)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    resolved.UserID.String(),
					"actor_role": resolved.Role.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
