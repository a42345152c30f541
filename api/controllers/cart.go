package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/eltafawook-admin/api/responses"
	"github.com/angelmondragon/eltafawook-admin/api/validators"
	"github.com/angelmondragon/eltafawook-admin/internal/cart"
	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

type addLineRequest struct {
	ItemID         string `json:"item_id" validate:"required"`
	Qty            int    `json:"qty" validate:"gt=0"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type cartView struct {
	Lines      []cart.Line `json:"lines"`
	TotalCents int64       `json:"total_cents"`
}

func viewOf(c *cart.Cart) cartView {
	lines := c.Lines()
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartView{Lines: lines, TotalCents: c.TotalCents()}
}

func CartGet(c *cart.Cart) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, viewOf(c))
	}
}

// CartAdd adds a catalog item, subject to the availability gate.
func CartAdd(c *cart.Cart, items catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, ok := items.Item(body.ItemID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown item"))
			return
		}
		if _, err := c.Add(r.Context(), item, body.Qty, body.UnitPriceCents); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(c))
	}
}

func CartRemove(c *cart.Cart, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.Remove(chi.URLParam(r, "itemId")) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the cart"))
			return
		}
		responses.WriteSuccess(w, viewOf(c))
	}
}

func CartClear(c *cart.Cart) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.Reset()
		responses.WriteSuccess(w, viewOf(c))
	}
}
