package ticket

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/parishworks/ticketing/internal/clock"
	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/metrics"
)

// Repository is the persistence boundary for tickets. MarkUsed is the
// single mutating call and must be an atomic status transition in the
// backing store: it reports whether this caller won the active->used
// flip.
type Repository interface {
	CreateTickets(ctx context.Context, tickets []domain.Ticket) error
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	MarkUsed(ctx context.Context, ticketID string, at time.Time, deviceID string) (bool, error)
}

// Service is the server-side authority for ticket identity and
// admission state.
type Service struct {
	repo   Repository
	signer *Signer
	clock  clock.Clock
}

func NewService(repo Repository, signer *Signer, clk clock.Clock) *Service {
	return &Service{
		repo:   repo,
		signer: signer,
		clock:  clk,
	}
}

// IssueBatch creates quantity tickets for a tier, each with its own
// signed payload, and persists them as active. Called at order
// finalization, one ticket per purchased unit.
func (s *Service) IssueBatch(ctx context.Context, tierID, ownerName string, quantity int) ([]domain.Ticket, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	tierID = domain.NormalizeTierID(tierID)
	tickets := make([]domain.Ticket, 0, quantity)
	for i := 0; i < quantity; i++ {
		id := uuid.NewString()
		payload, err := s.signer.Issue(id, ownerName, tierID)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, domain.Ticket{
			ID:            id,
			TierID:        tierID,
			OwnerName:     ownerName,
			Status:        domain.TicketStatusActive,
			SignedPayload: payload,
			CreatedAt:     now,
		})
	}

	if err := s.repo.CreateTickets(ctx, tickets); err != nil {
		return nil, err
	}
	metrics.TicketsIssuedTotal.Add(float64(quantity))
	return tickets, nil
}

// Verify authenticates a payload and returns the ticket it names. No
// mutation: gate staff inspect first, then commit with Confirm.
func (s *Service) Verify(ctx context.Context, payload string) (domain.Ticket, error) {
	claims, err := s.signer.Verify(payload)
	if err != nil {
		metrics.SignatureFailuresTotal.Inc()
		return domain.Ticket{}, err
	}

	ticket, err := s.repo.GetTicket(ctx, claims.ID)
	if err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

// Confirm flips a ticket active->used, recording the confirming device
// and time. Exactly one concurrent caller wins; every loser gets the
// same winner attribution in an AlreadyScannedError.
func (s *Service) Confirm(ctx context.Context, ticketID, deviceID string) (domain.Ticket, error) {
	return s.confirmAt(ctx, ticketID, deviceID, s.clock.Now())
}

func (s *Service) confirmAt(ctx context.Context, ticketID, deviceID string, at time.Time) (domain.Ticket, error) {
	won, err := s.repo.MarkUsed(ctx, ticketID, at, deviceID)
	if err != nil {
		return domain.Ticket{}, err
	}

	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}

	if !won {
		metrics.AdmissionsDuplicateTotal.Inc()
		scannedAt := ticket.CreatedAt
		if ticket.AdmittedAt != nil {
			scannedAt = *ticket.AdmittedAt
		}
		return ticket, &domain.AlreadyScannedError{
			TicketID:  ticketID,
			ScannedAt: scannedAt,
			DeviceID:  ticket.AdmittedBy,
		}
	}

	metrics.AdmissionsConfirmedTotal.Inc()
	return ticket, nil
}

// ScanSubmission is one offline scan replayed to the server during a
// device's sync pass.
type ScanSubmission struct {
	TicketID   string
	DeviceID   string
	ScannedAt  time.Time
	RawPayload string
}

// SyncVerdict is the server's answer to a replayed scan. Confirmed
// means this submission won the admission; otherwise ScannedAt and
// DeviceID attribute the earlier winner. First to reach the server
// wins, regardless of which physical scan happened first.
type SyncVerdict struct {
	Confirmed bool
	Status    domain.TicketStatus
	ScannedAt time.Time
	DeviceID  string
}

// SyncScan applies an offline scan with the same rules as Confirm. The
// raw payload is re-verified here: the device's own offline signature
// check is never trusted as final. Resubmitting an already-applied
// scan returns the same verdict, so device retries are safe.
func (s *Service) SyncScan(ctx context.Context, sub ScanSubmission) (SyncVerdict, error) {
	claims, err := s.signer.Verify(sub.RawPayload)
	if err != nil {
		metrics.SignatureFailuresTotal.Inc()
		return SyncVerdict{}, err
	}
	if claims.ID != sub.TicketID {
		return SyncVerdict{}, domain.ErrMalformedPayload
	}

	scannedAt := sub.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = s.clock.Now()
	}

	ticket, err := s.confirmAt(ctx, sub.TicketID, sub.DeviceID, scannedAt)
	var already *domain.AlreadyScannedError
	switch {
	case err == nil:
		return SyncVerdict{
			Confirmed: true,
			Status:    ticket.Status,
			ScannedAt: scannedAt,
			DeviceID:  sub.DeviceID,
		}, nil
	case errors.As(err, &already):
		metrics.SyncConflictsTotal.Inc()
		return SyncVerdict{
			Confirmed: false,
			Status:    ticket.Status,
			ScannedAt: already.ScannedAt,
			DeviceID:  already.DeviceID,
		}, nil
	default:
		return SyncVerdict{}, err
	}
}
