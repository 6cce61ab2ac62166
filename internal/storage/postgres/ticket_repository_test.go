package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/testutil"
)

func TestTicketRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	repo := NewTicketRepository(pool)

	newTicket := func(tier string) domain.Ticket {
		return domain.Ticket{
			ID:            uuid.NewString(),
			TierID:        tier,
			OwnerName:     "Ada",
			Status:        domain.TicketStatusActive,
			SignedPayload: "payload." + uuid.NewString(),
			CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
		}
	}

	t.Run("create batch and read back", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertTier(t, ctx, pool, "gold", 10)

		batch := []domain.Ticket{newTicket("gold"), newTicket("gold"), newTicket("gold")}
		if err := repo.CreateTickets(ctx, batch); err != nil {
			t.Fatalf("create tickets: %v", err)
		}

		got, err := repo.GetTicket(ctx, batch[1].ID)
		if err != nil {
			t.Fatalf("get ticket: %v", err)
		}
		if got.TierID != "gold" || got.Status != domain.TicketStatusActive || got.AdmittedAt != nil {
			t.Fatalf("unexpected ticket: %+v", got)
		}
		if got.SignedPayload != batch[1].SignedPayload {
			t.Fatalf("payload mismatch")
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		if err := repo.CreateTickets(context.Background(), nil); err != nil {
			t.Fatalf("empty batch: %v", err)
		}
	})

	t.Run("get unknown and malformed ids", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, err := repo.GetTicket(ctx, uuid.NewString()); err != domain.ErrTicketNotFound {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
		if _, err := repo.GetTicket(ctx, "nope"); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("mark used flips exactly once", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertTier(t, ctx, pool, "gold", 10)

		tk := newTicket("gold")
		if err := repo.CreateTickets(ctx, []domain.Ticket{tk}); err != nil {
			t.Fatalf("create: %v", err)
		}

		at := time.Now().UTC().Truncate(time.Microsecond)
		won, err := repo.MarkUsed(ctx, tk.ID, at, "gate-a")
		if err != nil {
			t.Fatalf("mark used: %v", err)
		}
		if !won {
			t.Fatalf("first admission should win")
		}

		won, err = repo.MarkUsed(ctx, tk.ID, at.Add(time.Second), "gate-b")
		if err != nil {
			t.Fatalf("second mark used: %v", err)
		}
		if won {
			t.Fatalf("second admission must lose")
		}

		got, err := repo.GetTicket(ctx, tk.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != domain.TicketStatusUsed || got.AdmittedBy != "gate-a" {
			t.Fatalf("winner attribution lost: %+v", got)
		}
		if got.AdmittedAt == nil || !got.AdmittedAt.Equal(at) {
			t.Fatalf("unexpected admitted_at: %v", got.AdmittedAt)
		}
	})

	t.Run("mark used on unknown ticket", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, err := repo.MarkUsed(ctx, uuid.NewString(), time.Now().UTC(), "gate-a"); err != domain.ErrTicketNotFound {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
	})
}
