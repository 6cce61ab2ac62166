package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPending  ReservationStatus = "pending"
	ReservationStatusConsumed ReservationStatus = "consumed"
	ReservationStatusReleased ReservationStatus = "released"
)

// Reservation is a time-boxed hold on inventory units. Its quantity
// corresponds to a decrement in the tier pool that is undone exactly
// once: either by rollback or by being superseded by a finalized order.
type Reservation struct {
	CheckoutID string
	TierID     string
	Quantity   int
	SessionID  string
	Status     ReservationStatus
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
