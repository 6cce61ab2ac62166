package ticket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/parishworks/ticketing/internal/clock"
	"github.com/parishworks/ticketing/internal/domain"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (f *fakeTicketRepo) CreateTickets(_ context.Context, tickets []domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tickets {
		f.tickets[t.ID] = t
	}
	return nil
}

func (f *fakeTicketRepo) GetTicket(_ context.Context, ticketID string) (domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeTicketRepo) MarkUsed(_ context.Context, ticketID string, at time.Time, deviceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return false, domain.ErrTicketNotFound
	}
	if t.Status != domain.TicketStatusActive {
		return false, nil
	}
	t.Status = domain.TicketStatusUsed
	t.AdmittedAt = &at
	t.AdmittedBy = deviceID
	f.tickets[ticketID] = t
	return true, nil
}

func newTestService(now time.Time) (*Service, *fakeTicketRepo, *Signer) {
	repo := newFakeTicketRepo()
	signer := NewSigner([]byte("test-secret"))
	return NewService(repo, signer, clock.NewFixed(now)), repo, signer
}

func TestService_IssueBatch(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	svc, repo, signer := newTestService(now)
	ctx := context.Background()

	tickets, err := svc.IssueBatch(ctx, "Gold", "Ada Lovelace", 3)
	if err != nil {
		t.Fatalf("issue batch: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(tickets))
	}

	seen := make(map[string]bool)
	for _, tk := range tickets {
		if tk.Status != domain.TicketStatusActive {
			t.Fatalf("expected active ticket, got %s", tk.Status)
		}
		if tk.TierID != "gold" {
			t.Fatalf("expected normalized tier, got %s", tk.TierID)
		}
		if seen[tk.ID] {
			t.Fatalf("duplicate ticket id %s", tk.ID)
		}
		seen[tk.ID] = true

		claims, err := signer.Verify(tk.SignedPayload)
		if err != nil {
			t.Fatalf("issued payload fails verification: %v", err)
		}
		if claims.ID != tk.ID {
			t.Fatalf("payload bound to wrong ticket: %s vs %s", claims.ID, tk.ID)
		}
		if _, err := repo.GetTicket(ctx, tk.ID); err != nil {
			t.Fatalf("ticket not persisted: %v", err)
		}
	}

	if _, err := svc.IssueBatch(ctx, "gold", "Ada", 0); err != domain.ErrInvalidQuantity {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestService_Verify(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	svc, _, signer := newTestService(now)
	ctx := context.Background()

	issued, err := svc.IssueBatch(ctx, "gold", "Ada", 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := svc.Verify(ctx, issued[0].SignedPayload)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != issued[0].ID || got.Status != domain.TicketStatusActive {
		t.Fatalf("unexpected ticket: %+v", got)
	}

	t.Run("unknown ticket id rejected", func(t *testing.T) {
		payload, err := signer.Issue("00000000-0000-0000-0000-000000000001", "Ghost", "gold")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, err := svc.Verify(ctx, payload); err != domain.ErrTicketNotFound {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
	})

	t.Run("forged payload never reaches lookup", func(t *testing.T) {
		if _, err := svc.Verify(ctx, "garbage"); err != domain.ErrMalformedPayload {
			t.Fatalf("expected ErrMalformedPayload, got %v", err)
		}
	})
}

func TestService_Confirm(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("first confirm wins, second reports prior scan", func(t *testing.T) {
		svc, _, _ := newTestService(now)
		issued, err := svc.IssueBatch(ctx, "gold", "Ada", 1)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		id := issued[0].ID

		tk, err := svc.Confirm(ctx, id, "gate-1")
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if tk.Status != domain.TicketStatusUsed || tk.AdmittedBy != "gate-1" {
			t.Fatalf("unexpected ticket after confirm: %+v", tk)
		}

		_, err = svc.Confirm(ctx, id, "gate-2")
		var already *domain.AlreadyScannedError
		if !errors.As(err, &already) {
			t.Fatalf("expected AlreadyScannedError, got %v", err)
		}
		if already.DeviceID != "gate-1" {
			t.Fatalf("expected winner gate-1, got %s", already.DeviceID)
		}
		if !already.ScannedAt.Equal(now) {
			t.Fatalf("expected scanned at %v, got %v", now, already.ScannedAt)
		}
	})

	t.Run("exactly one concurrent winner with consistent attribution", func(t *testing.T) {
		svc, _, _ := newTestService(now)
		issued, err := svc.IssueBatch(ctx, "gold", "Ada", 1)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		id := issued[0].ID

		const devices = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		attributions := make(map[string]bool)

		for i := 0; i < devices; i++ {
			wg.Add(1)
			go func(device string) {
				defer wg.Done()
				_, err := svc.Confirm(ctx, id, device)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					winners++
					return
				}
				var already *domain.AlreadyScannedError
				if !errors.As(err, &already) {
					t.Errorf("unexpected error: %v", err)
					return
				}
				attributions[already.DeviceID] = true
			}("gate-" + string(rune('a'+i)))
		}
		wg.Wait()

		if winners != 1 {
			t.Fatalf("expected exactly one winner, got %d", winners)
		}
		if len(attributions) != 1 {
			t.Fatalf("losers saw inconsistent attribution: %v", attributions)
		}
	})

	t.Run("unknown ticket", func(t *testing.T) {
		svc, _, _ := newTestService(now)
		if _, err := svc.Confirm(ctx, "missing", "gate-1"); err != domain.ErrTicketNotFound {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
	})
}

func TestService_SyncScan(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("offline scan confirms with its recorded time", func(t *testing.T) {
		svc, repo, _ := newTestService(now)
		issued, err := svc.IssueBatch(ctx, "gold", "Ada", 1)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		offlineAt := now.Add(-30 * time.Minute)

		verdict, err := svc.SyncScan(ctx, ScanSubmission{
			TicketID:   issued[0].ID,
			DeviceID:   "gate-2",
			ScannedAt:  offlineAt,
			RawPayload: issued[0].SignedPayload,
		})
		if err != nil {
			t.Fatalf("sync scan: %v", err)
		}
		if !verdict.Confirmed {
			t.Fatalf("expected offline scan to confirm")
		}

		tk, err := repo.GetTicket(ctx, issued[0].ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if tk.AdmittedAt == nil || !tk.AdmittedAt.Equal(offlineAt) {
			t.Fatalf("expected offline timestamp recorded, got %v", tk.AdmittedAt)
		}
	})

	t.Run("earlier server confirm wins over offline scan", func(t *testing.T) {
		svc, _, _ := newTestService(now)
		issued, err := svc.IssueBatch(ctx, "gold", "Ada", 1)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}

		if _, err := svc.Confirm(ctx, issued[0].ID, "gate-1"); err != nil {
			t.Fatalf("online confirm: %v", err)
		}

		// The offline scan physically happened earlier, but the server
		// saw gate-1 first.
		verdict, err := svc.SyncScan(ctx, ScanSubmission{
			TicketID:   issued[0].ID,
			DeviceID:   "gate-2",
			ScannedAt:  now.Add(-time.Hour),
			RawPayload: issued[0].SignedPayload,
		})
		if err != nil {
			t.Fatalf("sync scan: %v", err)
		}
		if verdict.Confirmed {
			t.Fatalf("expected conflict verdict")
		}
		if verdict.DeviceID != "gate-1" {
			t.Fatalf("expected winner gate-1, got %s", verdict.DeviceID)
		}
		if !verdict.ScannedAt.Equal(now) {
			t.Fatalf("expected winner time %v, got %v", now, verdict.ScannedAt)
		}
	})

	t.Run("resubmission returns the same verdict", func(t *testing.T) {
		svc, _, _ := newTestService(now)
		issued, err := svc.IssueBatch(ctx, "gold", "Ada", 1)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		sub := ScanSubmission{
			TicketID:   issued[0].ID,
			DeviceID:   "gate-2",
			ScannedAt:  now.Add(-time.Minute),
			RawPayload: issued[0].SignedPayload,
		}

		first, err := svc.SyncScan(ctx, sub)
		if err != nil {
			t.Fatalf("first sync: %v", err)
		}
		if !first.Confirmed {
			t.Fatalf("expected first sync to confirm")
		}

		second, err := svc.SyncScan(ctx, sub)
		if err != nil {
			t.Fatalf("second sync: %v", err)
		}
		if second.Confirmed {
			t.Fatalf("expected second sync to report already used")
		}
		if second.DeviceID != "gate-2" || !second.ScannedAt.Equal(sub.ScannedAt) {
			t.Fatalf("expected own attribution back, got %+v", second)
		}
	})

	t.Run("payload rechecked server-side", func(t *testing.T) {
		svc, _, _ := newTestService(now)
		issued, err := svc.IssueBatch(ctx, "gold", "Ada", 1)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}

		foreign, err := NewSigner([]byte("other-secret")).Issue(issued[0].ID, "Ada", "gold")
		if err != nil {
			t.Fatalf("issue foreign: %v", err)
		}
		_, err = svc.SyncScan(ctx, ScanSubmission{
			TicketID:   issued[0].ID,
			DeviceID:   "gate-2",
			ScannedAt:  now,
			RawPayload: foreign,
		})
		if err != domain.ErrInvalidSignature {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("payload id must match submission", func(t *testing.T) {
		svc, _, _ := newTestService(now)
		issued, err := svc.IssueBatch(ctx, "gold", "Ada", 2)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		_, err = svc.SyncScan(ctx, ScanSubmission{
			TicketID:   issued[0].ID,
			DeviceID:   "gate-2",
			ScannedAt:  now,
			RawPayload: issued[1].SignedPayload,
		})
		if err != domain.ErrMalformedPayload {
			t.Fatalf("expected ErrMalformedPayload, got %v", err)
		}
	})
}
