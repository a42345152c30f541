package controllers

import (
	"net/http"

	"github.com/angelmondragon/eltafawook-admin/api/responses"
	"github.com/angelmondragon/eltafawook-admin/api/validators"
	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/transfers"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

// TransferCreate checks the quantity against the source branch's live
// inventory report, then posts the transfer.
func TransferCreate(svc transfers.Service, cat catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body transfers.Transfer
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code := ""
		for _, b := range cat.Snapshot().Branches {
			if b.ID == body.FromBranchID {
				code = b.Code
				break
			}
		}
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown source branch"))
			return
		}

		rows, err := svc.BranchInventory(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		available := 0
		for _, row := range rows {
			if row.ItemID == body.ItemID {
				available = row.Available
				break
			}
		}

		result, err := svc.Create(r.Context(), body, available)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result.Value())
	}
}

// TransferInventory lists ?branch_code= stock, narrowed to ?teacher_id=
// rows with stock left when given.
func TransferInventory(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		rows, err := svc.BranchInventory(r.Context(), q.Get("branch_code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if teacherID := q.Get("teacher_id"); teacherID != "" {
			rows = transfers.Transferable(rows, teacherID)
		}
		if rows == nil {
			rows = []transfers.InventoryRow{}
		}
		responses.WriteSuccess(w, rows)
	}
}
