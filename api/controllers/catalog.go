package controllers

import (
	"net/http"

	"github.com/angelmondragon/eltafawook-admin/api/responses"
	"github.com/angelmondragon/eltafawook-admin/api/validators"
	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

type switchBranchRequest struct {
	BranchID string `json:"branch_id" validate:"required"`
}

func CatalogSnapshot(svc catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Snapshot())
	}
}

// CatalogTeachers lists teachers teaching a subject allowed for grade and section.
func CatalogTeachers(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grade, err := parseGrade(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		section, _ := enums.ParseSection(r.URL.Query().Get("section"))
		responses.WriteSuccess(w, svc.TeachersFor(grade, section))
	}
}

func CatalogItems(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grade, err := parseGrade(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.ItemsFor(r.URL.Query().Get("teacher_id"), grade))
	}
}

// BranchSwitch moves an admin to another branch and reloads branch-scoped data.
func BranchSwitch(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body switchBranchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branch, err := svc.SwitchBranch(r.Context(), body.BranchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, branch)
	}
}

func parseGrade(r *http.Request) (enums.Grade, error) {
	n, err := validators.ParseQueryInt(r, "grade", 0, 0, 3)
	if err != nil {
		return enums.GradeUnknown, err
	}
	if n == 0 {
		return enums.GradeUnknown, nil
	}
	g := enums.Grade(n)
	if !g.IsValid() {
		return enums.GradeUnknown, pkgerrors.New(pkgerrors.CodeValidation, "grade must be 1, 2 or 3")
	}
	return g, nil
}
