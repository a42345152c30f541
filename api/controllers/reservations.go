package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/eltafawook-admin/api/responses"
	"github.com/angelmondragon/eltafawook-admin/internal/reservations"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

type openReservations struct {
	Rows      []reservations.Enriched     `json:"rows"`
	Aggregate []reservations.AggregateRow `json:"aggregate,omitempty"`
}

func ReservationReceive(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "reservationId")
		if err := svc.ReceiveReservation(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": id, "status": "fulfilled"})
	}
}

// ReservationCancel unwinds and cancels a reservation, including fulfilled ones.
func ReservationCancel(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Cancel(r.Context(), chi.URLParam(r, "reservationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ReservationsOpen lists one student's open reservations with ?student_id=,
// otherwise every open reservation plus the per teacher and item totals.
func ReservationsOpen(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := strings.TrimSpace(r.URL.Query().Get("student_id"))
		if studentID != "" {
			rows, err := svc.OpenForStudent(r.Context(), studentID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, openReservations{Rows: nonNil(rows)})
			return
		}

		rows, err := svc.OpenAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, openReservations{Rows: nonNil(rows), Aggregate: reservations.Aggregate(rows)})
	}
}

func ReservationsToday(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.TodaysFulfilled(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nonNil(rows))
	}
}

func nonNil(rows []reservations.Enriched) []reservations.Enriched {
	if rows == nil {
		return []reservations.Enriched{}
	}
	return rows
}
