package controllers

import (
	"net/http"

	"github.com/angelmondragon/eltafawook-admin/api/middleware"
	"github.com/angelmondragon/eltafawook-admin/api/responses"
	"github.com/angelmondragon/eltafawook-admin/api/validators"
	"github.com/angelmondragon/eltafawook-admin/internal/auth"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

// AuthLogin signs the operator in against the remote API and loads the catalog.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthRestore re-attaches a client that presents the remembered token (or the
// current session token) and reloads the catalog.
func AuthRestore(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Resume(r.Context(), middleware.BearerToken(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "signed_out"})
	}
}
