package reservations

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/probe"
)

func saleUnwindCandidates(saleID string) []probe.Candidate {
	base := "/sales/" + url.PathEscape(saleID)
	return []probe.Candidate{
		{Path: base + "/rollback", Method: http.MethodPost},
		{Path: base + "/void", Method: http.MethodPost},
		{Path: base, Method: http.MethodDelete},
	}
}

func fulfillmentUndoCandidates(id string) []probe.Candidate {
	return []probe.Candidate{
		{Path: reservationPath(id, "unfulfill"), Method: http.MethodPost},
		{Path: reservationPath(id, "rollback"), Method: http.MethodPost},
	}
}

// Cancel unwinds whatever the reservation went through and cancels it:
// the linked sale is rolled back, a fulfillment is undone, then the
// reservation is cancelled. Unwind steps are best effort; a 400/404/409 on
// the cancel itself means the server already considers it closed.
func (s *service) Cancel(ctx context.Context, id string) (res *CancelResult, err error) {
	defer s.observe("cancel_reservation", time.Now(), &err)

	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing reservation id")
	}
	token, err := s.sess.RequireToken()
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithReservationID(ctx, id)

	before, err := s.fetch(ctx, token, id)
	if err != nil {
		return nil, cancelError(err)
	}

	saleID, err := s.linkedSale(ctx, token, id, before)
	if err != nil {
		return nil, cancelError(err)
	}
	if saleID != "" {
		_, ok, err := s.prober.TryOptional(ctx, "sale_unwind", saleUnwindCandidates(saleID), apiclient.RequestOptions{AuthToken: token})
		if err != nil {
			return nil, cancelError(err)
		}
		if !ok {
			s.logg.Warn(s.logg.WithField(ctx, "sale_id", saleID), "no sale unwind endpoint, continuing")
		}
	}

	if before != nil && before.IsFulfilled() {
		_, ok, err := s.prober.TryOptional(ctx, "fulfillment_undo", fulfillmentUndoCandidates(id), apiclient.RequestOptions{AuthToken: token})
		if err != nil {
			return nil, cancelError(err)
		}
		if !ok {
			s.logg.Warn(ctx, "no fulfillment undo endpoint, continuing")
		}
	}

	_, err = s.api.Do(ctx, reservationPath(id, "cancel"), apiclient.RequestOptions{Method: http.MethodPost, AuthToken: token})
	if err != nil {
		if !apiclient.HasStatus(err, http.StatusBadRequest, http.StatusNotFound, http.StatusConflict) {
			return nil, cancelError(err)
		}
		s.logg.Warn(s.logg.WithField(ctx, "reason", apiclient.MessageOf(err)), "cancel rejected, treating as already closed")
	}

	after, err := s.fetch(ctx, token, id)
	switch {
	case err != nil:
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "could not confirm cancellation")
		s.metrics.IncCancelMismatch()
	case after == nil || after.StatusValue() != enums.ReservationStatusCancelled:
		status := ""
		if after != nil {
			status = after.Status
		}
		s.logg.Warn(s.logg.WithField(ctx, "status", status), "reservation not cancelled after cancel")
		s.metrics.IncCancelMismatch()
	}

	s.logg.Info(ctx, "reservation cancelled")
	return &CancelResult{ID: id, Status: enums.ReservationStatusCancelled}, nil
}

// fetch reads one reservation, falling back to the search route when the
// direct route is not implemented. A missing reservation is nil, nil.
func (s *service) fetch(ctx context.Context, token, id string) (*Reservation, error) {
	resp, err := s.api.Do(ctx, reservationPath(id), apiclient.RequestOptions{Method: http.MethodGet, AuthToken: token})
	if err == nil {
		var r Reservation
		if err := resp.Decode(&r); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode reservation")
		}
		return &r, nil
	}
	if !apiclient.IsNotImplemented(err) {
		return nil, err
	}

	q := url.Values{"id": {id}, "limit": {"1"}}
	rows, err := s.list(ctx, token, "/reservations/search?"+q.Encode())
	if err != nil {
		if apiclient.IsNotImplemented(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// linkedSale returns the sale that settled the reservation, if any.
func (s *service) linkedSale(ctx context.Context, token, id string, r *Reservation) (string, error) {
	if r != nil && r.SaleID != nil && *r.SaleID != "" {
		return *r.SaleID, nil
	}
	q := url.Values{"reservation_id": {id}, "limit": {"1"}}
	resp, err := s.api.Do(ctx, "/sales/search?"+q.Encode(), apiclient.RequestOptions{Method: http.MethodGet, AuthToken: token})
	if err != nil {
		if apiclient.IsNotImplemented(err) {
			return "", nil
		}
		return "", err
	}
	var sales []struct {
		ID string `json:"id"`
	}
	if err := resp.Decode(&sales); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "unreadable sale search response, skipping sale unwind")
		return "", nil
	}
	if len(sales) == 0 {
		return "", nil
	}
	return sales[0].ID, nil
}

func cancelError(err error) error {
	return pkgerrors.Wrap(pkgerrors.As(err).Code(), err, apiclient.MessageOf(err)).WithTitle("Cancel failed")
}
