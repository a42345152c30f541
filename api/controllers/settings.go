package controllers

import (
	"net/http"

	"github.com/angelmondragon/eltafawook-admin/api/responses"
	"github.com/angelmondragon/eltafawook-admin/api/validators"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/internal/settings"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

func SettingsGet(sess *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, sess.WASettings())
	}
}

// SettingsSave persists the WhatsApp settings and applies them to the session.
func SettingsSave(svc settings.Service, sess *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body settings.WASettings
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saved, err := svc.Save(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.SetWASettings(saved)
		responses.WriteSuccess(w, saved)
	}
}
