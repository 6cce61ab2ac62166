package domain

import "time"

// Order is the finalized purchase derived from a reservation. The
// durable payment ledger owns the full record; the core keeps the
// fields it needs to issue tickets and block double-finalization.
type Order struct {
	ID         string
	CheckoutID string
	TierID     string
	Quantity   int
	BuyerName  string
	CreatedAt  time.Time
}
