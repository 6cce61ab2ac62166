package reservation

import (
	"sync"

	"github.com/parishworks/ticketing/internal/domain"
)

// pendingIndex is the fast ephemeral lookup for live holds, keyed by
// checkout id. The durable ledger stays the source of truth; losing
// this index costs a lookup, never correctness.
type pendingIndex struct {
	mu      sync.Mutex
	entries map[string]domain.Reservation
}

func newPendingIndex() *pendingIndex {
	return &pendingIndex{entries: make(map[string]domain.Reservation)}
}

func (i *pendingIndex) put(r domain.Reservation) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[r.CheckoutID] = r
}

func (i *pendingIndex) get(checkoutID string) (domain.Reservation, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	r, ok := i.entries[checkoutID]
	return r, ok
}

func (i *pendingIndex) delete(checkoutID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.entries, checkoutID)
}
