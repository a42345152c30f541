package reservations

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/eltafawook-admin/internal/cart"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
)

// Reservation is a reservation record as returned by the remote API.
type Reservation struct {
	ID                      string          `json:"id"`
	BranchID                string          `json:"branch_id,omitempty"`
	StudentID               string          `json:"student_id"`
	StudentPublicID         json.RawMessage `json:"student_public_id,omitempty"`
	ItemID                  string          `json:"item_id"`
	SKU                     string          `json:"sku,omitempty"`
	ItemName                string          `json:"item_name,omitempty"`
	ItemGrade               enums.Grade     `json:"item_grade,omitempty"`
	TeacherName             string          `json:"teacher_name,omitempty"`
	Qty                     int             `json:"qty"`
	UnitPriceCents          int64           `json:"unit_price_cents"`
	UnitPriceCentsEffective *int64          `json:"unit_price_cents_effective,omitempty"`
	PrepaidCents            int64           `json:"prepaid_cents"`
	TotalCents              int64           `json:"total_cents,omitempty"`
	PaymentMethod           string          `json:"payment_method,omitempty"`
	PayerReference          *string         `json:"payer_reference,omitempty"`
	PaymentProofID          *string         `json:"payment_proof_id,omitempty"`
	PaymentProofURL         *string         `json:"payment_proof_url,omitempty"`
	Status                  string          `json:"status"`
	FulfilledAt             *string         `json:"fulfilled_at,omitempty"`
	SaleID                  *string         `json:"sale_id,omitempty"`
	CreatedAt               string          `json:"created_at,omitempty"`
	UpdatedAt               string          `json:"updated_at,omitempty"`
}

// StatusValue is the parsed status, "" when unknown.
func (r Reservation) StatusValue() enums.ReservationStatus {
	s, err := enums.ParseReservationStatus(r.Status)
	if err != nil {
		return ""
	}
	return s
}

// IsFulfilled reports a fulfilled status or a fulfillment timestamp.
func (r Reservation) IsFulfilled() bool {
	return r.StatusValue() == enums.ReservationStatusFulfilled ||
		(r.FulfilledAt != nil && strings.TrimSpace(*r.FulfilledAt) != "")
}

// publicIDString renders student_public_id whether it came as a number or a string.
func (r Reservation) publicIDString() string {
	raw := strings.TrimSpace(string(r.StudentPublicID))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.StudentPublicID, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(r.StudentPublicID, &n); err == nil {
		return n.String()
	}
	return raw
}

// ProofFile is a payment proof that still has to be uploaded.
type ProofFile struct {
	Filename string
	Content  io.Reader
}

// Payment is how the student pays. Wallet methods need an 11-digit payer
// phone and a proof: either a file to upload or an already uploaded id/url.
type Payment struct {
	Method     enums.PaymentMethod `json:"method"`
	PayerPhone string              `json:"payer_phone"`
	ProofID    string              `json:"proof_id,omitempty"`
	ProofURL   string              `json:"proof_url,omitempty"`
	Proof      *ProofFile          `json:"-"`
}

// OrderRequest is a fully paid, immediately handed-over sale.
type OrderRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	ItemID    string  `json:"item_id" validate:"required"`
	Qty       int     `json:"qty" validate:"required,gt=0"`
	Payment   Payment `json:"payment"`
}

// ReserveRequest places a reservation with an optional deposit, given as
// operator-typed EGP text or as cents (cents win when both are set).
type ReserveRequest struct {
	StudentID    string  `json:"student_id" validate:"required"`
	ItemID       string  `json:"item_id" validate:"required"`
	Qty          int     `json:"qty" validate:"required,gt=0"`
	DepositEGP   string  `json:"deposit_egp"`
	DepositCents *int64  `json:"deposit_cents"`
	Payment      Payment `json:"payment"`
}

// CartPurchase buys every cart line for one student with one shared payment.
type CartPurchase struct {
	StudentID string      `json:"student_id" validate:"required"`
	Lines     []cart.Line `json:"lines"`
	Payment   Payment     `json:"payment"`
}

// Notice is a non-fatal correction surfaced to the operator.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const NoticeDepositCapped = "deposit_capped"

type OrderResult struct {
	Reservation Reservation `json:"reservation"`
}

type ReserveResult struct {
	Reservation Reservation             `json:"reservation"`
	Status      enums.ReservationStatus `json:"status"`
	// Queued is true when the branch had no stock and the request waits in line.
	Queued       bool    `json:"queued"`
	PrepaidCents int64   `json:"prepaid_cents"`
	Notice       *Notice `json:"notice,omitempty"`
}

type PurchaseResult struct {
	ReservationIDs []string `json:"reservation_ids"`
}

type CancelResult struct {
	ID     string                  `json:"id"`
	Status enums.ReservationStatus `json:"status"`
}

// StepError reports a lifecycle step that failed after the reservation was
// created. The reservation is left as the previous step put it.
type StepError struct {
	ReservationID string
	Step          string
	Err           error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("reservation %s: %s: %v", e.ReservationID, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// CartLineError reports the cart line that stopped a purchase. Completed
// lines are not rolled back.
type CartLineError struct {
	Index     int
	Completed []string
	Err       error
}

func (e *CartLineError) Error() string {
	return fmt.Sprintf("cart line %d failed after %d completed: %v", e.Index, len(e.Completed), e.Err)
}

func (e *CartLineError) Unwrap() error { return e.Err }
