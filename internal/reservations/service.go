package reservations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/internal/uploads"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"github.com/angelmondragon/eltafawook-admin/pkg/metrics"
	"github.com/angelmondragon/eltafawook-admin/pkg/money"
	"github.com/angelmondragon/eltafawook-admin/pkg/probe"
)

const (
	stepCreate    = "create"
	stepMarkReady = "mark-ready"
	stepFulfill   = "fulfill"
)

// Service drives reservations through the remote lifecycle.
type Service interface {
	PlaceImmediateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	PlaceReservationOnly(ctx context.Context, req ReserveRequest) (*ReserveResult, error)
	PurchaseCart(ctx context.Context, req CartPurchase) (*PurchaseResult, error)
	ReceiveReservation(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) (*CancelResult, error)

	OpenForStudent(ctx context.Context, studentID string) ([]Enriched, error)
	OpenAll(ctx context.Context) ([]Enriched, error)
	TodaysFulfilled(ctx context.Context) ([]Enriched, error)
}

type itemLookup interface {
	Item(id string) (catalog.Item, bool)
}

type publicIDResolver interface {
	PublicID(ctx context.Context, studentID string) (int64, error)
}

type ServiceParams struct {
	API      apiclient.Doer
	Prober   *probe.Prober
	Session  *session.Session
	Items    itemLookup
	Uploads  uploads.Service
	Students publicIDResolver
	Logger   *logger.Logger
	Metrics  *metrics.OperationMetrics
	// Location decides what "today" means; defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
}

type service struct {
	api      apiclient.Doer
	prober   *probe.Prober
	sess     *session.Session
	items    itemLookup
	uploads  uploads.Service
	students publicIDResolver
	logg     *logger.Logger
	metrics  *metrics.OperationMetrics
	loc      *time.Location
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("api client required")
	}
	if params.Prober == nil {
		return nil, fmt.Errorf("prober required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session required")
	}
	if params.Items == nil {
		return nil, fmt.Errorf("item lookup required")
	}
	if params.Uploads == nil {
		return nil, fmt.Errorf("uploads service required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Location == nil {
		params.Location = time.Local
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		api:      params.API,
		prober:   params.Prober,
		sess:     params.Session,
		items:    params.Items,
		uploads:  params.Uploads,
		students: params.Students,
		logg:     params.Logger,
		metrics:  params.Metrics,
		loc:      params.Location,
		now:      params.Now,
	}, nil
}

type createBody struct {
	BranchID        string              `json:"branch_id"`
	ItemID          string              `json:"item_id"`
	Qty             int                 `json:"qty"`
	StudentID       string              `json:"student_id"`
	UnitPriceCents  int64               `json:"unit_price_cents"`
	PrepaidCents    int64               `json:"prepaid_cents"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method,omitempty"`
	PayerReference  *string             `json:"payer_reference,omitempty"`
	PaymentProofID  *string             `json:"payment_proof_id,omitempty"`
	PaymentProofURL *string             `json:"payment_proof_url,omitempty"`
}

func (b *createBody) applyPayment(p paymentFields) {
	b.PaymentMethod = p.Method
	b.PayerReference = p.PayerReference
	b.PaymentProofID = p.ProofID
	b.PaymentProofURL = p.ProofURL
}

// PlaceImmediateOrder validates, uploads any proof, then creates a fully
// prepaid reservation, marks it ready without notifying and fulfills it. A
// failure after create returns a *StepError naming the reservation.
func (s *service) PlaceImmediateOrder(ctx context.Context, req OrderRequest) (res *OrderResult, err error) {
	defer s.observe("place_immediate_order", time.Now(), &err)

	item, err := s.validateLine(req.StudentID, req.ItemID, req.Qty)
	if err != nil {
		return nil, err
	}
	method, err := checkPayment(req.Payment)
	if err != nil {
		return nil, err
	}
	token, branch, err := s.context()
	if err != nil {
		return nil, err
	}
	pay, err := s.resolvePayment(ctx, token, method, req.Payment)
	if err != nil {
		return nil, err
	}

	body := createBody{
		BranchID:       branch.ID,
		ItemID:         item.ID,
		Qty:            req.Qty,
		StudentID:      req.StudentID,
		UnitPriceCents: item.DefaultPriceCents,
		PrepaidCents:   money.Total(item.DefaultPriceCents, req.Qty),
	}
	body.applyPayment(pay)

	r, err := s.completeLine(ctx, token, body)
	if err != nil {
		return nil, orderError(err, "Order failed")
	}
	return &OrderResult{Reservation: r}, nil
}

// PlaceReservationOnly creates a reservation with a deposit capped at the
// total. A zero deposit sends no payment fields at all.
func (s *service) PlaceReservationOnly(ctx context.Context, req ReserveRequest) (res *ReserveResult, err error) {
	defer s.observe("place_reservation", time.Now(), &err)

	item, err := s.validateLine(req.StudentID, req.ItemID, req.Qty)
	if err != nil {
		return nil, err
	}
	total := money.Total(item.DefaultPriceCents, req.Qty)
	requested := money.CentsFromEGP(req.DepositEGP)
	if req.DepositCents != nil {
		requested = *req.DepositCents
	}
	deposit, capped := money.CapDeposit(requested, total)

	var method enums.PaymentMethod
	if deposit > 0 {
		if method, err = checkPayment(req.Payment); err != nil {
			return nil, err
		}
	}
	token, branch, err := s.context()
	if err != nil {
		return nil, err
	}

	body := createBody{
		BranchID:       branch.ID,
		ItemID:         item.ID,
		Qty:            req.Qty,
		StudentID:      req.StudentID,
		UnitPriceCents: item.DefaultPriceCents,
		PrepaidCents:   deposit,
	}
	if deposit > 0 {
		pay, err := s.resolvePayment(ctx, token, method, req.Payment)
		if err != nil {
			return nil, err
		}
		body.applyPayment(pay)
	}

	r, err := s.create(ctx, token, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.As(err).Code(), err, apiclient.MessageOf(err)).WithTitle("Reservation failed")
	}

	out := &ReserveResult{
		Reservation:  r,
		Status:       r.StatusValue(),
		Queued:       r.StatusValue() == enums.ReservationStatusQueued,
		PrepaidCents: deposit,
	}
	if capped {
		out.Notice = &Notice{
			Code:    NoticeDepositCapped,
			Message: "deposit reduced to the order total of " + money.FormatEGP(total) + " EGP",
		}
	}
	s.logg.Info(s.logg.WithReservationID(ctx, r.ID), "reservation placed")
	return out, nil
}

// PurchaseCart uploads the shared proof once and completes each line in
// order. The first failing line stops the loop; earlier lines stay fulfilled.
func (s *service) PurchaseCart(ctx context.Context, req CartPurchase) (res *PurchaseResult, err error) {
	defer s.observe("purchase_cart", time.Now(), &err)

	if req.StudentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pick a student first").WithTitle("Student required")
	}
	if len(req.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "the cart is empty").WithTitle("Cart empty")
	}
	for _, line := range req.Lines {
		if line.ItemID == "" || line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "every cart line needs an item and a positive quantity")
		}
	}
	method, err := checkPayment(req.Payment)
	if err != nil {
		return nil, err
	}
	token, branch, err := s.context()
	if err != nil {
		return nil, err
	}
	pay, err := s.resolvePayment(ctx, token, method, req.Payment)
	if err != nil {
		return nil, err
	}

	done := make([]string, 0, len(req.Lines))
	for i, line := range req.Lines {
		body := createBody{
			BranchID:       branch.ID,
			ItemID:         line.ItemID,
			Qty:            line.Qty,
			StudentID:      req.StudentID,
			UnitPriceCents: line.UnitPriceCents,
			PrepaidCents:   line.TotalCents(),
		}
		body.applyPayment(pay)

		r, err := s.completeLine(ctx, token, body)
		if err != nil {
			lineErr := &CartLineError{Index: i, Completed: append([]string(nil), done...), Err: err}
			s.logg.Error(s.logg.WithFields(ctx, map[string]any{"line": i, "completed": len(done)}), "cart purchase stopped", lineErr)
			return &PurchaseResult{ReservationIDs: done}, pkgerrors.Wrap(pkgerrors.As(err).Code(), lineErr, apiclient.MessageOf(err)).
				WithTitle("Purchase failed").
				WithDetails(map[string]any{"failed_line": i, "completed_reservation_ids": lineErr.Completed})
		}
		done = append(done, r.ID)
	}
	return &PurchaseResult{ReservationIDs: done}, nil
}

// ReceiveReservation hands a reserved item over: mark ready, then fulfill.
func (s *service) ReceiveReservation(ctx context.Context, id string) (err error) {
	defer s.observe("receive_reservation", time.Now(), &err)

	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing reservation id")
	}
	token, err := s.sess.RequireToken()
	if err != nil {
		return err
	}
	if err := s.markReady(ctx, token, id); err != nil {
		return orderError(&StepError{ReservationID: id, Step: stepMarkReady, Err: err}, "Receive failed")
	}
	if err := s.fulfill(ctx, token, id); err != nil {
		return orderError(&StepError{ReservationID: id, Step: stepFulfill, Err: err}, "Receive failed")
	}
	s.logg.Info(s.logg.WithReservationID(ctx, id), "reservation received")
	return nil
}

// completeLine runs create, mark-ready and fulfill for one line.
func (s *service) completeLine(ctx context.Context, token string, body createBody) (Reservation, error) {
	r, err := s.create(ctx, token, body)
	if err != nil {
		return Reservation{}, &StepError{Step: stepCreate, Err: err}
	}
	if err := s.markReady(ctx, token, r.ID); err != nil {
		return r, &StepError{ReservationID: r.ID, Step: stepMarkReady, Err: err}
	}
	if err := s.fulfill(ctx, token, r.ID); err != nil {
		return r, &StepError{ReservationID: r.ID, Step: stepFulfill, Err: err}
	}
	s.logg.Info(s.logg.WithReservationID(ctx, r.ID), "order completed")
	return r, nil
}

func (s *service) create(ctx context.Context, token string, body createBody) (Reservation, error) {
	resp, err := s.api.Do(ctx, "/reservations", apiclient.RequestOptions{Method: http.MethodPost, Body: body, AuthToken: token})
	if err != nil {
		return Reservation{}, err
	}
	var r Reservation
	if err := resp.Decode(&r); err != nil {
		return Reservation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode reservation")
	}
	if r.ID == "" {
		return Reservation{}, pkgerrors.New(pkgerrors.CodeDependency, "reservation response has no id")
	}
	return r, nil
}

func (s *service) markReady(ctx context.Context, token, id string) error {
	_, err := s.api.Do(ctx, reservationPath(id, "mark-ready"), apiclient.RequestOptions{
		Method:    http.MethodPost,
		Body:      map[string]bool{"notify": false},
		AuthToken: token,
	})
	return err
}

func (s *service) fulfill(ctx context.Context, token, id string) error {
	_, err := s.api.Do(ctx, reservationPath(id, "fulfill"), apiclient.RequestOptions{Method: http.MethodPost, AuthToken: token})
	return err
}

func (s *service) validateLine(studentID, itemID string, qty int) (catalog.Item, error) {
	if studentID == "" || itemID == "" {
		return catalog.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "pick a student and an item").WithTitle("Student and item required")
	}
	if qty <= 0 {
		return catalog.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	item, ok := s.items.Item(itemID)
	if !ok {
		return catalog.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown item").WithTitle("Pick an item")
	}
	return item, nil
}

func (s *service) context() (string, session.Branch, error) {
	token, err := s.sess.RequireToken()
	if err != nil {
		return "", session.Branch{}, err
	}
	branch := s.sess.Branch()
	if branch.ID == "" {
		return "", session.Branch{}, pkgerrors.New(pkgerrors.CodeValidation, "select a branch first")
	}
	return token, branch, nil
}

func (s *service) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, time.Since(start), *err)
}

// orderError keeps the remote message and code and exposes the reservation id.
func orderError(err error, title string) error {
	wrapped := pkgerrors.Wrap(pkgerrors.As(err).Code(), err, apiclient.MessageOf(err)).WithTitle(title)
	var step *StepError
	if errors.As(err, &step) && step.ReservationID != "" {
		wrapped = wrapped.WithDetails(map[string]any{"reservation_id": step.ReservationID, "step": step.Step})
	}
	return wrapped
}

func reservationPath(id string, action ...string) string {
	p := "/reservations/" + url.PathEscape(id)
	for _, a := range action {
		p += "/" + a
	}
	return p
}
