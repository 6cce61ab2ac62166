package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/inventory"
)

// InventoryStore keeps the per-tier counters in the tiers table. The
// reserve check-and-decrement is one conditional UPDATE, so the store
// itself sequences concurrent buyers; no client-side read precedes the
// write.
type InventoryStore struct {
	pool *pgxpool.Pool
}

func NewInventoryStore(pool *pgxpool.Pool) *InventoryStore {
	return &InventoryStore{pool: pool}
}

func (s *InventoryStore) Reserve(ctx context.Context, tierID string, quantity int) (inventory.ReserveResult, error) {
	if quantity < 0 {
		return inventory.ReserveResult{}, domain.ErrInvalidQuantity
	}
	tierID = domain.NormalizeTierID(tierID)

	const stmt = `
UPDATE tiers
SET available = available - $2
WHERE id = $1 AND available >= $2
RETURNING available`

	var after int
	err := s.pool.QueryRow(ctx, stmt, tierID, quantity).Scan(&after)
	if err == nil {
		return inventory.ReserveResult{OK: true, Available: after}, nil
	}
	if err != pgx.ErrNoRows {
		return inventory.ReserveResult{}, fmt.Errorf("reserve: %w", err)
	}

	// No row updated: either the tier is unknown or the pool is short.
	current, err := s.Get(ctx, tierID)
	if err != nil {
		return inventory.ReserveResult{}, err
	}
	return inventory.ReserveResult{OK: false, Available: current}, nil
}

func (s *InventoryStore) Release(ctx context.Context, tierID string, quantity int) (int, error) {
	if quantity < 0 {
		return 0, domain.ErrInvalidQuantity
	}
	tierID = domain.NormalizeTierID(tierID)

	const stmt = `
UPDATE tiers
SET available = available + $2
WHERE id = $1
RETURNING available`

	var after int
	err := s.pool.QueryRow(ctx, stmt, tierID, quantity).Scan(&after)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrTierNotFound
		}
		return 0, fmt.Errorf("release: %w", err)
	}
	return after, nil
}

func (s *InventoryStore) Get(ctx context.Context, tierID string) (int, error) {
	const query = `SELECT available FROM tiers WHERE id = $1`

	var available int
	err := s.pool.QueryRow(ctx, query, domain.NormalizeTierID(tierID)).Scan(&available)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrTierNotFound
		}
		return 0, fmt.Errorf("get tier: %w", err)
	}
	return available, nil
}

func (s *InventoryStore) GetAll(ctx context.Context, tierIDs []string) (map[string]int, error) {
	query := `SELECT id, available FROM tiers ORDER BY id`
	args := []any{}
	if len(tierIDs) > 0 {
		normalized := make([]string, 0, len(tierIDs))
		for _, id := range tierIDs {
			normalized = append(normalized, domain.NormalizeTierID(id))
		}
		query = `SELECT id, available FROM tiers WHERE id = ANY($1) ORDER BY id`
		args = append(args, normalized)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var available int
		if err := rows.Scan(&id, &available); err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		out[id] = available
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate tiers: %w", rows.Err())
	}
	return out, nil
}

func (s *InventoryStore) Initialize(ctx context.Context, tierID string, total int) error {
	if total < 0 {
		return domain.ErrInvalidQuantity
	}

	const stmt = `
INSERT INTO tiers (id, available, total)
VALUES ($1, $2, $2)
ON CONFLICT (id) DO UPDATE SET available = EXCLUDED.available, total = EXCLUDED.total`

	_, err := s.pool.Exec(ctx, stmt, domain.NormalizeTierID(tierID), total)
	if err != nil {
		return fmt.Errorf("initialize tier: %w", err)
	}
	return nil
}
