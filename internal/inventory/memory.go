package inventory

import (
	"context"
	"sync"

	"github.com/parishworks/ticketing/internal/domain"
)

// MemoryStore is a mutex-guarded counter map. It backs tests and any
// deployment that keeps the counters in process.
type MemoryStore struct {
	mu    sync.Mutex
	tiers map[string]*counter
}

type counter struct {
	available int
	total     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tiers: make(map[string]*counter)}
}

func (s *MemoryStore) Reserve(_ context.Context, tierID string, quantity int) (ReserveResult, error) {
	if quantity < 0 {
		return ReserveResult{}, domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.tiers[domain.NormalizeTierID(tierID)]
	if !ok {
		return ReserveResult{}, domain.ErrTierNotFound
	}
	if c.available < quantity {
		return ReserveResult{OK: false, Available: c.available}, nil
	}
	c.available -= quantity
	return ReserveResult{OK: true, Available: c.available}, nil
}

func (s *MemoryStore) Release(_ context.Context, tierID string, quantity int) (int, error) {
	if quantity < 0 {
		return 0, domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.tiers[domain.NormalizeTierID(tierID)]
	if !ok {
		return 0, domain.ErrTierNotFound
	}
	c.available += quantity
	return c.available, nil
}

func (s *MemoryStore) Get(_ context.Context, tierID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.tiers[domain.NormalizeTierID(tierID)]
	if !ok {
		return 0, domain.ErrTierNotFound
	}
	return c.available, nil
}

func (s *MemoryStore) GetAll(_ context.Context, tierIDs []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int)
	if len(tierIDs) == 0 {
		for id, c := range s.tiers {
			out[id] = c.available
		}
		return out, nil
	}
	for _, id := range tierIDs {
		if c, ok := s.tiers[domain.NormalizeTierID(id)]; ok {
			out[domain.NormalizeTierID(id)] = c.available
		}
	}
	return out, nil
}

func (s *MemoryStore) Initialize(_ context.Context, tierID string, total int) error {
	if total < 0 {
		return domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tiers[domain.NormalizeTierID(tierID)] = &counter{available: total, total: total}
	return nil
}
