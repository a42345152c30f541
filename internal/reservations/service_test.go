package reservations

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/eltafawook-admin/internal/cart"
	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/internal/settings"
	"github.com/angelmondragon/eltafawook-admin/internal/uploads"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient/apiclienttest"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"github.com/angelmondragon/eltafawook-admin/pkg/probe"
)

type itemMap map[string]catalog.Item

func (m itemMap) Item(id string) (catalog.Item, bool) {
	it, ok := m[id]
	return it, ok
}

type fixedPublicIDs map[string]int64

func (f fixedPublicIDs) PublicID(_ context.Context, id string) (int64, error) {
	if pid, ok := f[id]; ok {
		return pid, nil
	}
	return 0, errors.New("unknown student")
}

type fixture struct {
	svc  Service
	fake *apiclienttest.Fake
	sess *session.Session
	logs *lockedBuffer
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var testItems = itemMap{
	"i1": {ID: "i1", SKU: "PHY-3", Name: "Physics", DefaultPriceCents: 15000},
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u", "role": "user"}).SignedString([]byte("k"))
	require.NoError(t, err)
	sess := session.New(settings.Defaults())
	_, err = sess.SignIn(token)
	require.NoError(t, err)
	sess.SelectBranch(session.Branch{ID: "b1", Code: "BAN"})

	fake := apiclienttest.New()
	prober, err := probe.New(fake, nil, nil)
	require.NoError(t, err)
	up, err := uploads.NewService(fake, prober, nil)
	require.NoError(t, err)

	logs := &lockedBuffer{}
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		API:      fake,
		Prober:   prober,
		Session:  sess,
		Items:    testItems,
		Uploads:  up,
		Students: fixedPublicIDs{"s9": 1042},
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: logs}),
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	return fixture{svc: svc, fake: fake, sess: sess, logs: logs}
}

func (f fixture) scriptLifecycle(id string) {
	f.fake.
		On(http.MethodPost, "/reservations/"+id+"/mark-ready", http.StatusOK, `{}`).
		On(http.MethodPost, "/reservations/"+id+"/fulfill", http.StatusOK, `{}`)
}

func TestPlaceImmediateOrderCashRunsLifecycle(t *testing.T) {
	f := newFixture(t)
	f.fake.On(http.MethodPost, "/reservations", http.StatusCreated, `{"id":"r1","status":"hold"}`)
	f.scriptLifecycle("r1")

	res, err := f.svc.PlaceImmediateOrder(context.Background(), OrderRequest{StudentID: "s1", ItemID: "i1", Qty: 2})
	require.NoError(t, err)
	assert.Equal(t, "r1", res.Reservation.ID)
	assert.Equal(t, []string{
		"POST /reservations",
		"POST /reservations/r1/mark-ready",
		"POST /reservations/r1/fulfill",
	}, f.fake.Keys())

	create, _ := f.fake.Last(http.MethodPost, "/reservations")
	body := create.Body.(map[string]any)
	assert.Equal(t, "b1", body["branch_id"])
	assert.EqualValues(t, 30000, body["prepaid_cents"])
	assert.EqualValues(t, 15000, body["unit_price_cents"])
	assert.Equal(t, "cash", body["payment_method"])
	assert.NotContains(t, body, "payer_reference")

	ready, _ := f.fake.Last(http.MethodPost, "/reservations/r1/mark-ready")
	assert.Equal(t, map[string]any{"notify": false}, ready.Body)
}

func TestPlaceImmediateOrderWalletUploadsProofFirst(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodPost, "/uploads", http.StatusOK, `{"file_id":77,"path":"/p/77.png"}`).
		On(http.MethodPost, "/reservations", http.StatusCreated, `{"id":"r1"}`)
	f.scriptLifecycle("r1")

	_, err := f.svc.PlaceImmediateOrder(context.Background(), OrderRequest{
		StudentID: "s1", ItemID: "i1", Qty: 1,
		Payment: Payment{
			Method:     enums.PaymentMethodVodafoneCash,
			PayerPhone: "010 0123 4567",
			Proof:      &ProofFile{Filename: "shot.png", Content: strings.NewReader("png")},
		},
	})
	require.NoError(t, err)

	keys := f.fake.Keys()
	require.Equal(t, "POST /payments/upload", keys[0])
	require.Equal(t, "POST /uploads", keys[1])
	assert.Equal(t, "POST /reservations", keys[2])

	create, _ := f.fake.Last(http.MethodPost, "/reservations")
	body := create.Body.(map[string]any)
	assert.Equal(t, "01001234567", body["payer_reference"])
	assert.Equal(t, "77", body["payment_proof_id"])
	assert.Equal(t, "/p/77.png", body["payment_proof_url"])
}

func TestPlaceImmediateOrderValidationMakesNoCalls(t *testing.T) {
	f := newFixture(t)
	cases := []OrderRequest{
		{ItemID: "i1", Qty: 1},
		{StudentID: "s1", ItemID: "i1", Qty: 0},
		{StudentID: "s1", ItemID: "missing", Qty: 1},
		{StudentID: "s1", ItemID: "i1", Qty: 1, Payment: Payment{Method: enums.PaymentMethodInstapay, PayerPhone: "0100"}},
		{StudentID: "s1", ItemID: "i1", Qty: 1, Payment: Payment{Method: enums.PaymentMethodInstapay, PayerPhone: "01001234567"}},
	}
	for _, req := range cases {
		_, err := f.svc.PlaceImmediateOrder(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	}
	assert.Empty(t, f.fake.Calls())
}

func TestPlaceImmediateOrderFulfillFailureNamesReservation(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodPost, "/reservations", http.StatusCreated, `{"id":"r1"}`).
		On(http.MethodPost, "/reservations/r1/mark-ready", http.StatusOK, `{}`).
		On(http.MethodPost, "/reservations/r1/fulfill", http.StatusConflict, `{"detail":"not enough stock"}`)

	_, err := f.svc.PlaceImmediateOrder(context.Background(), OrderRequest{StudentID: "s1", ItemID: "i1", Qty: 1})
	require.Error(t, err)

	var step *StepError
	require.True(t, errors.As(err, &step))
	assert.Equal(t, "r1", step.ReservationID)
	assert.Equal(t, stepFulfill, step.Step)

	typed := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, "not enough stock", typed.Message())
}

func TestPlaceReservationOnlyCapsDeposit(t *testing.T) {
	f := newFixture(t)
	f.fake.On(http.MethodPost, "/reservations", http.StatusCreated, `{"id":"r2","status":"queued"}`)

	res, err := f.svc.PlaceReservationOnly(context.Background(), ReserveRequest{
		StudentID: "s1", ItemID: "i1", Qty: 1, DepositEGP: "500",
	})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, enums.ReservationStatusQueued, res.Status)
	assert.EqualValues(t, 15000, res.PrepaidCents)
	require.NotNil(t, res.Notice)
	assert.Equal(t, NoticeDepositCapped, res.Notice.Code)
	assert.Equal(t, []string{"POST /reservations"}, f.fake.Keys())
}

func TestPlaceReservationOnlyZeroDepositOmitsPayment(t *testing.T) {
	f := newFixture(t)
	f.fake.On(http.MethodPost, "/reservations", http.StatusCreated, `{"id":"r2","status":"hold"}`)

	// wallet method without proof is fine when nothing is paid
	res, err := f.svc.PlaceReservationOnly(context.Background(), ReserveRequest{
		StudentID: "s1", ItemID: "i1", Qty: 1,
		Payment: Payment{Method: enums.PaymentMethodInstapay},
	})
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Nil(t, res.Notice)

	create, _ := f.fake.Last(http.MethodPost, "/reservations")
	body := create.Body.(map[string]any)
	assert.EqualValues(t, 0, body["prepaid_cents"])
	assert.NotContains(t, body, "payment_method")
	assert.NotContains(t, body, "payer_reference")
}

func TestPurchaseCartStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodPost, "/reservations", http.StatusCreated, `{"id":"r1"}`).
		On(http.MethodPost, "/reservations", http.StatusCreated, `{"id":"r2"}`).
		On(http.MethodPost, "/reservations/r2/mark-ready", http.StatusBadRequest, `{"detail":"stock"}`)
	f.scriptLifecycle("r1")

	lines := []cart.Line{
		{ItemID: "i1", Qty: 1, UnitPriceCents: 15000},
		{ItemID: "i2", Qty: 2, UnitPriceCents: 9000},
		{ItemID: "i3", Qty: 1, UnitPriceCents: 1000},
	}
	res, err := f.svc.PurchaseCart(context.Background(), CartPurchase{StudentID: "s1", Lines: lines})
	require.Error(t, err)

	var lineErr *CartLineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 1, lineErr.Index)
	assert.Equal(t, []string{"r1"}, lineErr.Completed)
	assert.Equal(t, []string{"r1"}, res.ReservationIDs)
	assert.Equal(t, 2, f.fake.Count(http.MethodPost, "/reservations"))
	assert.Zero(t, f.fake.Count(http.MethodPost, "/reservations/r2/fulfill"))
}

func TestPurchaseCartUploadsSharedProofOnce(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodPost, "/payments/upload", http.StatusOK, `{"id":"p1","url":"/p1"}`).
		On(http.MethodPost, "/reservations", http.StatusCreated, `{"id":"r1"}`).
		On(http.MethodPost, "/reservations", http.StatusCreated, `{"id":"r2"}`)
	f.scriptLifecycle("r1")
	f.scriptLifecycle("r2")

	res, err := f.svc.PurchaseCart(context.Background(), CartPurchase{
		StudentID: "s1",
		Lines:     []cart.Line{{ItemID: "i1", Qty: 1, UnitPriceCents: 100}, {ItemID: "i2", Qty: 3, UnitPriceCents: 200}},
		Payment: Payment{
			Method:     enums.PaymentMethodInstapay,
			PayerPhone: "01001234567",
			Proof:      &ProofFile{Filename: "a.jpg", Content: strings.NewReader("jpg")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, res.ReservationIDs)
	assert.Equal(t, 1, f.fake.Count(http.MethodPost, "/payments/upload"))

	second, _ := f.fake.Last(http.MethodPost, "/reservations")
	body := second.Body.(map[string]any)
	assert.EqualValues(t, 600, body["prepaid_cents"])
	assert.Equal(t, "p1", body["payment_proof_id"])
}

func TestReceiveReservation(t *testing.T) {
	f := newFixture(t)
	f.scriptLifecycle("r5")

	require.NoError(t, f.svc.ReceiveReservation(context.Background(), "r5"))
	assert.Equal(t, []string{"POST /reservations/r5/mark-ready", "POST /reservations/r5/fulfill"}, f.fake.Keys())
}

func TestOperationsRequireSignIn(t *testing.T) {
	f := newFixture(t)
	f.sess.Logout()

	_, err := f.svc.PlaceImmediateOrder(context.Background(), OrderRequest{StudentID: "s1", ItemID: "i1", Qty: 1})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	_, err = f.svc.OpenAll(context.Background())
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	assert.Empty(t, f.fake.Calls())
}
