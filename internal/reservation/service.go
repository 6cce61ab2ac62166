package reservation

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/parishworks/ticketing/internal/clock"
	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/inventory"
	"github.com/parishworks/ticketing/internal/metrics"
	"github.com/parishworks/ticketing/internal/ratelimit"
)

// Repository is the durable reservation ledger. TransitionStatus is a
// conditional update ("set status=to where status=from") and reports
// whether this caller performed the transition; it is the single
// arbiter between finalize and rollback.
type Repository interface {
	CreateReservation(ctx context.Context, r domain.Reservation) error
	GetReservation(ctx context.Context, checkoutID string) (domain.Reservation, error)
	SumPendingBySession(ctx context.Context, sessionID string, now time.Time) (int, error)
	TransitionStatus(ctx context.Context, checkoutID string, from, to domain.ReservationStatus) (bool, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
	CreateOrder(ctx context.Context, o domain.Order) error
}

// TicketIssuer creates signed tickets when an order is finalized.
type TicketIssuer interface {
	IssueBatch(ctx context.Context, tierID, ownerName string, quantity int) ([]domain.Ticket, error)
}

const (
	defaultMaxPerSession = 10
	defaultHoldDuration  = 7 * time.Minute
)

// Service turns buyer requests into time-boxed holds and owns their
// whole lifecycle: soft-lock, rollback, finalize.
type Service struct {
	inv     inventory.Store
	repo    Repository
	sched   Scheduler
	limiter *ratelimit.Limiter
	issuer  TicketIssuer
	clock   clock.Clock
	logger  *log.Logger

	maxPerSession int
	holdDuration  time.Duration
	index         *pendingIndex
}

type Option func(*Service)

// WithHoldDuration overrides how long a soft-lock stands before the
// scheduled rollback fires.
func WithHoldDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.holdDuration = d
		}
	}
}

// WithMaxPerSession overrides the per-session pending-unit cap.
func WithMaxPerSession(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPerSession = n
		}
	}
}

func NewService(
	inv inventory.Store,
	repo Repository,
	sched Scheduler,
	limiter *ratelimit.Limiter,
	issuer TicketIssuer,
	clk clock.Clock,
	logger *log.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = log.Default()
	}
	svc := &Service{
		inv:           inv,
		repo:          repo,
		sched:         sched,
		limiter:       limiter,
		issuer:        issuer,
		clock:         clk,
		logger:        logger,
		maxPerSession: defaultMaxPerSession,
		holdDuration:  defaultHoldDuration,
		index:         newPendingIndex(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type SoftLockInput struct {
	TierID    string
	Quantity  int
	SessionID string
}

// SoftLock validates the request, atomically reserves units and
// persists a pending reservation with a scheduled rollback. Every
// precondition is a hard rejection with no side effects; the inventory
// decrement is the first and only step that changes anything.
func (s *Service) SoftLock(ctx context.Context, in SoftLockInput) (domain.Reservation, error) {
	tierID := domain.NormalizeTierID(in.TierID)
	if in.SessionID == "" {
		return domain.Reservation{}, domain.ErrSessionRequired
	}
	if in.Quantity < 1 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	if in.Quantity > s.maxPerSession {
		metrics.ReservationsRejectedTotal.WithLabelValues("cap_exceeded").Inc()
		return domain.Reservation{}, domain.ErrSessionCapExceeded
	}

	now := s.clock.Now()

	pending, err := s.repo.SumPendingBySession(ctx, in.SessionID, now)
	if err != nil {
		return domain.Reservation{}, err
	}
	if pending+in.Quantity > s.maxPerSession {
		metrics.ReservationsRejectedTotal.WithLabelValues("cap_exceeded").Inc()
		return domain.Reservation{}, domain.ErrSessionCapExceeded
	}

	if d := s.limiter.Allow(in.SessionID); !d.Allowed {
		metrics.ReservationsRejectedTotal.WithLabelValues("rate_limited").Inc()
		metrics.RateLimitedTotal.WithLabelValues("reserve").Inc()
		return domain.Reservation{}, &domain.RateLimitedError{
			RetryAfterSeconds: int(d.RetryAfter.Seconds()) + 1,
		}
	}

	res, err := s.inv.Reserve(ctx, tierID, in.Quantity)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !res.OK {
		metrics.ReservationsRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		return domain.Reservation{}, &domain.InsufficientStockError{
			TierID:    tierID,
			Requested: in.Quantity,
			Available: res.Available,
		}
	}

	reservation := domain.Reservation{
		CheckoutID: uuid.NewString(),
		TierID:     tierID,
		Quantity:   in.Quantity,
		SessionID:  in.SessionID,
		Status:     domain.ReservationStatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.holdDuration),
	}

	if err := s.repo.CreateReservation(ctx, reservation); err != nil {
		// The units are already held; hand them back before failing.
		if _, relErr := s.inv.Release(ctx, tierID, in.Quantity); relErr != nil {
			s.logger.Printf("ERROR: release after failed reservation write checkout=%s: %v", reservation.CheckoutID, relErr)
		}
		return domain.Reservation{}, err
	}
	s.index.put(reservation)

	task := RollbackTask{
		CheckoutID: reservation.CheckoutID,
		TierID:     tierID,
		Quantity:   in.Quantity,
	}
	if _, err := s.sched.Schedule(ctx, task, s.holdDuration); err != nil {
		// The hold stands either way; the sweep is the backstop.
		metrics.ScheduleFailuresTotal.Inc()
		s.logger.Printf("WARN: rollback schedule failed checkout=%s, relying on sweep: %v", reservation.CheckoutID, err)
	}

	metrics.ReservationsCreatedTotal.Inc()
	return reservation, nil
}

// Rollback releases a reservation's units if, and only if, it is still
// pending. Safe under at-least-once delivery, late delivery, and a
// race with Finalize: the ledger's conditional transition decides, and
// inventory moves only on a won transition.
func (s *Service) Rollback(ctx context.Context, task RollbackTask) error {
	reservation, ok := s.index.get(task.CheckoutID)
	if !ok {
		var err error
		reservation, err = s.repo.GetReservation(ctx, task.CheckoutID)
		if err == domain.ErrReservationNotFound {
			metrics.RollbacksNoopTotal.Inc()
			return nil
		}
		if err != nil {
			return err
		}
	}

	won, err := s.repo.TransitionStatus(ctx, task.CheckoutID,
		domain.ReservationStatusPending, domain.ReservationStatusReleased)
	if err != nil {
		return err
	}
	if !won {
		metrics.RollbacksNoopTotal.Inc()
		s.index.delete(task.CheckoutID)
		return nil
	}

	if _, err := s.inv.Release(ctx, reservation.TierID, reservation.Quantity); err != nil {
		return err
	}
	s.index.delete(task.CheckoutID)
	metrics.RollbacksReleasedTotal.Inc()
	s.logger.Printf("rollback released checkout=%s tier=%s quantity=%d",
		task.CheckoutID, reservation.TierID, reservation.Quantity)
	return nil
}

type FinalizeInput struct {
	CheckoutID string
	BuyerName  string
}

type FinalizeResult struct {
	Order   domain.Order
	Tickets []domain.Ticket
}

// Finalize consumes a pending reservation into an order and issues its
// tickets. The pending->consumed transition is the arbiter against a
// concurrent rollback; once won, the inventory decrement is permanent.
func (s *Service) Finalize(ctx context.Context, in FinalizeInput) (FinalizeResult, error) {
	reservation, err := s.repo.GetReservation(ctx, in.CheckoutID)
	if err != nil {
		return FinalizeResult{}, err
	}

	won, err := s.repo.TransitionStatus(ctx, in.CheckoutID,
		domain.ReservationStatusPending, domain.ReservationStatusConsumed)
	if err != nil {
		return FinalizeResult{}, err
	}
	if !won {
		current, err := s.repo.GetReservation(ctx, in.CheckoutID)
		if err != nil {
			return FinalizeResult{}, err
		}
		if current.Status == domain.ReservationStatusConsumed {
			return FinalizeResult{}, domain.ErrReservationConsumed
		}
		return FinalizeResult{}, domain.ErrReservationExpired
	}
	s.index.delete(in.CheckoutID)

	order := domain.Order{
		ID:         uuid.NewString(),
		CheckoutID: in.CheckoutID,
		TierID:     reservation.TierID,
		Quantity:   reservation.Quantity,
		BuyerName:  in.BuyerName,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return FinalizeResult{}, err
	}

	tickets, err := s.issuer.IssueBatch(ctx, reservation.TierID, in.BuyerName, reservation.Quantity)
	if err != nil {
		return FinalizeResult{}, err
	}

	return FinalizeResult{Order: order, Tickets: tickets}, nil
}

// ReleaseExpired funnels every overdue pending reservation through the
// same rollback path. It is the operational backstop for callbacks
// that were never scheduled or never delivered.
func (s *Service) ReleaseExpired(ctx context.Context, limit int) (int, error) {
	expired, err := s.repo.ListExpiredPending(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, r := range expired {
		task := RollbackTask{CheckoutID: r.CheckoutID, TierID: r.TierID, Quantity: r.Quantity}
		if err := s.Rollback(ctx, task); err != nil {
			s.logger.Printf("WARN: sweep rollback checkout=%s: %v", r.CheckoutID, err)
			continue
		}
		released++
	}
	return released, nil
}
