package controllers

import (
	"net/http"

	"github.com/angelmondragon/bookloan-backend/api/middleware"
	"github.com/angelmondragon/bookloan-backend/api/responses"
	"github.com/angelmondragon/bookloan-backend/pkg/auth/session"
	"github.com/angelmondragon/bookloan-backend/pkg/errors"
	"github.com/angelmondragon/bookloan-backend/pkg/logger"
)

// AuthLogout revokes the access session the caller authenticated with.
func AuthLogout(manager session.Revoker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeInternal, "session manager unavailable"))
			return
		}

		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeUnauthorized, "missing session id"))
			return
		}

		if err := manager.Revoke(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeDependency, err, "revoke session"))
			return
		}

		responses.WriteNoContent(w)
	}
}
