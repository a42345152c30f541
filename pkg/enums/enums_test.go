package enums

import (
	"encoding/json"
	"testing"
)

func TestParsePaymentMethod(t *testing.T) {
	pm, err := ParsePaymentMethod("instapay")
	if err != nil || pm != PaymentMethodInstapay {
		t.Fatalf("unexpected parse result %q %v", pm, err)
	}
	if _, err := ParsePaymentMethod("card"); err == nil {
		t.Fatalf("expected error for unknown method")
	}
}

func TestPaymentMethodRequiresProof(t *testing.T) {
	if PaymentMethodCash.RequiresProof() {
		t.Fatalf("cash never needs proof")
	}
	if !PaymentMethodVodafoneCash.RequiresProof() || !PaymentMethodInstapay.RequiresProof() {
		t.Fatalf("wallet methods need proof")
	}
}

func TestNormalizePaymentMethod(t *testing.T) {
	cases := map[string]PaymentMethod{
		"Vodafone Cash": PaymentMethodVodafoneCash,
		"insta-pay":     PaymentMethodInstapay,
		"CASH":          PaymentMethodCash,
		"":              PaymentMethodCash,
		"card":          PaymentMethodCash,
	}
	for in, want := range cases {
		if got := NormalizePaymentMethod(in); got != want {
			t.Fatalf("NormalizePaymentMethod(%q) = %q want %q", in, got, want)
		}
	}
}

func TestReservationStatus(t *testing.T) {
	st, err := ParseReservationStatus(" Fulfilled ")
	if err != nil || st != ReservationStatusFulfilled {
		t.Fatalf("unexpected parse %q %v", st, err)
	}
	if st.IsOpen() || ReservationStatusCancelled.IsOpen() {
		t.Fatalf("fulfilled and cancelled are closed")
	}
	if !ReservationStatusQueued.IsOpen() || !ReservationStatusHold.IsOpen() {
		t.Fatalf("queued and hold are open")
	}
}

func TestSectionAllowsEmpty(t *testing.T) {
	if !SectionNone.IsValid() {
		t.Fatalf("empty section is valid for grade 1")
	}
	if _, err := ParseSection("art"); err == nil {
		t.Fatalf("expected invalid section")
	}
}

func TestUserRoleAndGender(t *testing.T) {
	if _, err := ParseUserRole("admin"); err != nil {
		t.Fatalf("admin should parse: %v", err)
	}
	if UserRole("root").IsValid() {
		t.Fatalf("unknown role should be invalid")
	}
	if _, err := ParseGender("other"); err == nil {
		t.Fatalf("expected invalid gender")
	}
}

func TestGradeDecodesNumberOrString(t *testing.T) {
	var v struct {
		A Grade `json:"a"`
		B Grade `json:"b"`
		C Grade `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":2,"b":"3","c":null}`), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.A != GradeTwo || v.B != GradeThree || v.C != GradeUnknown {
		t.Fatalf("unexpected grades %d %d %d", v.A, v.B, v.C)
	}
	if err := json.Unmarshal([]byte(`{"a":"x"}`), &v); err == nil {
		t.Fatalf("expected error for non-numeric grade")
	}
}

func TestParseGrade(t *testing.T) {
	if g, err := ParseGrade(" 1 "); err != nil || g != GradeOne {
		t.Fatalf("unexpected parse result %d %v", g, err)
	}
	if _, err := ParseGrade("4"); err == nil {
		t.Fatalf("expected error for out-of-range grade")
	}
}
