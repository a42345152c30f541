package enums

import (
	"fmt"
	"strings"
)

// ReservationStatus mirrors the remote reservation lifecycle.
type ReservationStatus string

const (
	ReservationStatusQueued    ReservationStatus = "queued"
	ReservationStatusHold      ReservationStatus = "hold"
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusQueued,
	ReservationStatusHold,
	ReservationStatusActive,
	ReservationStatusFulfilled,
	ReservationStatusCancelled,
	ReservationStatusExpired,
}

// String implements fmt.Stringer.
func (s ReservationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReservationStatus.
func (s ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the reservation still awaits fulfillment.
func (s ReservationStatus) IsOpen() bool {
	return s != ReservationStatusFulfilled && s != ReservationStatusCancelled
}

// ParseReservationStatus converts raw input into a ReservationStatus, ignoring case.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	lowered := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validReservationStatuses {
		if string(candidate) == lowered {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
