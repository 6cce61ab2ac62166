package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parishworks/ticketing/internal/domain"
)

// ReservationRepository is the durable reservation ledger. Status
// transitions are conditional updates keyed on the current status, so
// finalize and rollback racing over the same checkout resolve in the
// database, not in application code.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (checkout_id, tier_id, quantity, session_id, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		res.CheckoutID,
		res.TierID,
		res.Quantity,
		res.SessionID,
		res.Status,
		res.CreatedAt,
		res.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetReservation(ctx context.Context, checkoutID string) (domain.Reservation, error) {
	const query = `
SELECT checkout_id, tier_id, quantity, session_id, status, created_at, expires_at
FROM reservations
WHERE checkout_id = $1`

	var res domain.Reservation
	var status string
	err := r.queryRow(ctx, query, checkoutID).
		Scan(&res.CheckoutID, &res.TierID, &res.Quantity, &res.SessionID, &status, &res.CreatedAt, &res.ExpiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	res.Status = domain.ReservationStatus(status)
	return res, nil
}

func (r *ReservationRepository) SumPendingBySession(ctx context.Context, sessionID string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM reservations
WHERE session_id = $1 AND status = 'pending' AND expires_at > $2`

	var total int
	if err := r.queryRow(ctx, query, sessionID, now).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum pending by session: %w", err)
	}
	return total, nil
}

func (r *ReservationRepository) TransitionStatus(ctx context.Context, checkoutID string, from, to domain.ReservationStatus) (bool, error) {
	const stmt = `UPDATE reservations SET status = $3 WHERE checkout_id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt, checkoutID, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("transition reservation status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ReservationRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	const query = `
SELECT checkout_id, tier_id, quantity, session_id, status, created_at, expires_at
FROM reservations
WHERE status = 'pending' AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired pending: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		var status string
		if err := rows.Scan(&res.CheckoutID, &res.TierID, &res.Quantity, &res.SessionID, &status, &res.CreatedAt, &res.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.Status = domain.ReservationStatus(status)
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}
	return out, nil
}

func (r *ReservationRepository) CreateOrder(ctx context.Context, o domain.Order) error {
	const stmt = `
INSERT INTO orders (id, checkout_id, tier_id, quantity, buyer_name, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, o.ID, o.CheckoutID, o.TierID, o.Quantity, o.BuyerName, o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrReservationConsumed
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
