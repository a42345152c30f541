package reservations

import (
	"context"
	"strings"

	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/phone"
)

type paymentFields struct {
	Method         enums.PaymentMethod
	PayerReference *string
	ProofID        *string
	ProofURL       *string
}

// checkPayment validates p without any network call.
func checkPayment(p Payment) (enums.PaymentMethod, error) {
	method := p.Method
	if method == "" {
		method = enums.PaymentMethodCash
	}
	if !method.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cash, vodafone_cash or instapay").WithTitle("Invalid payment method")
	}
	if !method.RequiresProof() {
		return method, nil
	}
	if !phone.IsLocal11(p.PayerPhone) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payer phone must be 11 digits").WithTitle("Invalid number")
	}
	if p.Proof == nil && strings.TrimSpace(p.ProofID) == "" && strings.TrimSpace(p.ProofURL) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "attach a screenshot of the transfer").WithTitle("Missing payment proof")
	}
	return method, nil
}

// resolvePayment uploads the proof file, if any, and builds the payment
// fields of the create request. Cash carries no payer or proof fields.
func (s *service) resolvePayment(ctx context.Context, token string, method enums.PaymentMethod, p Payment) (paymentFields, error) {
	out := paymentFields{Method: method}
	if !method.RequiresProof() {
		return out, nil
	}
	ref := phone.Digits(p.PayerPhone)
	out.PayerReference = &ref
	out.ProofID = nonEmpty(p.ProofID)
	out.ProofURL = nonEmpty(p.ProofURL)

	if p.Proof != nil {
		proof, err := s.uploads.UploadProof(ctx, token, p.Proof.Filename, p.Proof.Content)
		if err != nil {
			return paymentFields{}, err
		}
		out.ProofID = nonEmpty(proof.ID)
		out.ProofURL = nonEmpty(proof.URL)
	}
	return out, nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
