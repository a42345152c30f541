package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/eltafawook-admin/api/responses"
	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/inventory"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

type availabilityReader interface {
	Get(ctx context.Context, item catalog.Item) (inventory.Snapshot, error)
	Refresh(ctx context.Context, item catalog.Item) (inventory.Snapshot, error)
}

type availabilityView struct {
	ItemID string `json:"item_id"`
	inventory.Snapshot
}

// InventoryAvailability returns the cached snapshot for ?item_id=, fetching
// on a miss. ?refresh=true always fetches.
func InventoryAvailability(cache availabilityReader, items catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		item, ok := items.Item(strings.TrimSpace(q.Get("item_id")))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a known item_id is required"))
			return
		}

		read := cache.Get
		if strings.EqualFold(q.Get("refresh"), "true") {
			read = cache.Refresh
		}
		snap, err := read(r.Context(), item)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, availabilityView{ItemID: item.ID, Snapshot: snap})
	}
}
