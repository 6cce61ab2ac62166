package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parishworks/ticketing/internal/domain"
)

// TicketRepository persists issued tickets and their admission state.
// MarkUsed is the conditional active->used flip; two gate devices
// hitting it together are ordered by the database and exactly one sees
// a row updated.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	const stmt = `
INSERT INTO tickets (id, tier_id, owner_name, status, signed_payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		tx := txFromContext(txCtx)
		for _, t := range tickets {
			if _, err := tx.Exec(txCtx, stmt, t.ID, t.TierID, t.OwnerName, t.Status, t.SignedPayload, t.CreatedAt); err != nil {
				return fmt.Errorf("create ticket %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (r *TicketRepository) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	const query = `
SELECT id, tier_id, owner_name, status, signed_payload, admitted_at, admitted_device, created_at
FROM tickets
WHERE id = $1`

	var t domain.Ticket
	var status string
	var admittedDevice *string
	err := r.pool.QueryRow(ctx, query, ticketID).
		Scan(&t.ID, &t.TierID, &t.OwnerName, &status, &t.SignedPayload, &t.AdmittedAt, &admittedDevice, &t.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Ticket{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	t.Status = domain.TicketStatus(status)
	if admittedDevice != nil {
		t.AdmittedBy = *admittedDevice
	}
	return t, nil
}

func (r *TicketRepository) MarkUsed(ctx context.Context, ticketID string, at time.Time, deviceID string) (bool, error) {
	const stmt = `
UPDATE tickets
SET status = 'used', admitted_at = $2, admitted_device = $3
WHERE id = $1 AND status = 'active'`

	tag, err := r.pool.Exec(ctx, stmt, ticketID, at, deviceID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("mark ticket used: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Distinguish "lost the race" from "no such ticket".
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, ticketID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check ticket: %w", err)
	}
	if !exists {
		return false, domain.ErrTicketNotFound
	}
	return false, nil
}
