package inventory

import "context"

// ReserveResult reports the outcome of an atomic decrement attempt.
// On success Available is the post-decrement count; on shortfall it is
// the untouched live count so callers can report "only N left".
type ReserveResult struct {
	OK        bool
	Available int
}

// Store is the per-tier available-count register. Reserve and Release
// must be atomic in the backing store; a read followed by a write is
// exactly the oversell bug this boundary exists to rule out.
type Store interface {
	// Reserve decrements the tier's count by quantity if at least that
	// much remains, in a single atomic step. The count never goes
	// negative.
	Reserve(ctx context.Context, tierID string, quantity int) (ReserveResult, error)

	// Release increments the tier's count and returns the new value.
	// Releasing zero is a no-op. It makes no assumption about the
	// decrement it reverses.
	Release(ctx context.Context, tierID string, quantity int) (int, error)

	// Get returns the live available count for one tier.
	Get(ctx context.Context, tierID string) (int, error)

	// GetAll returns live counts for the given tiers; with no ids it
	// returns every tier.
	GetAll(ctx context.Context, tierIDs []string) (map[string]int, error)

	// Initialize sets the available count and reference total to an
	// absolute value. Admin-only, used at event setup and resets.
	Initialize(ctx context.Context, tierID string, total int) error
}
