package domain

import (
	"errors"
	"time"
)

var (
	ErrTierNotFound        = errors.New("tier not found")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrSessionRequired     = errors.New("session id required")
	ErrSessionCapExceeded  = errors.New("per-session reservation cap exceeded")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationExpired  = errors.New("reservation expired")
	ErrReservationConsumed = errors.New("reservation already consumed")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrInvalidSignature    = errors.New("invalid ticket signature")
	ErrMalformedPayload    = errors.New("malformed ticket payload")
	ErrInvalidID           = errors.New("invalid id")
)

// InsufficientStockError reports a reserve attempt that exceeded the
// remaining pool. It carries the live count so callers can show
// "only N left". This is an expected business rejection, not a fault.
type InsufficientStockError struct {
	TierID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock"
}

// RateLimitedError reports a rejected attempt with the wait until the
// window frees up.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return "rate limited"
}

// AlreadyScannedError reports an admission attempt on a used ticket,
// with the winning scan's attribution for the gate operator.
type AlreadyScannedError struct {
	TicketID  string
	ScannedAt time.Time
	DeviceID  string
}

func (e *AlreadyScannedError) Error() string {
	return "ticket already scanned"
}
