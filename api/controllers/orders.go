package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/eltafawook-admin/api/responses"
	"github.com/angelmondragon/eltafawook-admin/api/validators"
	"github.com/angelmondragon/eltafawook-admin/internal/cart"
	"github.com/angelmondragon/eltafawook-admin/internal/reservations"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

const (
	payloadField = "payload"
	proofField   = "proof"
)

// cartCheckout buys the current cart; the lines come from the server-side cart.
type cartCheckout struct {
	StudentID string               `json:"student_id" validate:"required"`
	Payment   reservations.Payment `json:"payment"`
}

// decodeOrder reads a JSON body, or a multipart body whose "payload" field
// holds the JSON and whose "proof" file is the payment screenshot.
func decodeOrder(r *http.Request, dest any, payment *reservations.Payment) error {
	if !validators.IsMultipart(r) {
		return validators.DecodeJSONBody(r, dest)
	}
	file, err := validators.DecodeMultipart(r, payloadField, dest, proofField)
	if err != nil {
		return err
	}
	if file != nil {
		payment.Proof = &reservations.ProofFile{Filename: file.Filename, Content: file.Content}
	}
	return nil
}

// OrderImmediate sells and hands over an item in one step.
func OrderImmediate(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body reservations.OrderRequest
		if err := decodeOrder(r, &body, &body.Payment); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.PlaceImmediateOrder(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func OrderReserve(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body reservations.ReserveRequest
		if err := decodeOrder(r, &body, &body.Payment); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.PlaceReservationOnly(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// OrderCart purchases every line of the operator cart. Lines that completed
// leave the cart even when a later line fails, so a retry only resubmits the rest.
func OrderCart(svc reservations.Service, c *cart.Cart, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartCheckout
		if err := decodeOrder(r, &body, &body.Payment); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if c.Len() == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "the cart is empty").WithTitle("Cart empty"))
			return
		}
		lines := c.Lines()
		result, err := svc.PurchaseCart(r.Context(), reservations.CartPurchase{
			StudentID: body.StudentID,
			Lines:     lines,
			Payment:   body.Payment,
		})
		if n := completedLines(result, err, len(lines)); n > 0 {
			c.Settle(lines[:n])
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// completedLines is how many leading cart lines became reservations.
func completedLines(result *reservations.PurchaseResult, err error, submitted int) int {
	n := 0
	var lineErr *reservations.CartLineError
	switch {
	case errors.As(err, &lineErr):
		n = lineErr.Index
	case result != nil:
		n = len(result.ReservationIDs)
	}
	return min(n, submitted)
}
