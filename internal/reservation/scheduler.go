package reservation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RollbackTask is the payload a scheduled rollback callback carries
// back into the system at fire time.
type RollbackTask struct {
	CheckoutID string
	TierID     string
	Quantity   int
}

// Scheduler dispatches a rollback callback after a delay. Delivery is
// at-least-once with no ordering guarantee; the rollback handler is
// idempotent by construction, so any concrete scheduler (cron sweep,
// durable timer, managed delay queue) is interchangeable.
type Scheduler interface {
	Schedule(ctx context.Context, task RollbackTask, delay time.Duration) (string, error)
}

// TimerScheduler fires tasks from in-process timers. Timers do not
// survive a restart; the expired-reservation sweeper covers that gap.
type TimerScheduler struct {
	handler func(context.Context, RollbackTask)
	logger  *log.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewTimerScheduler(handler func(context.Context, RollbackTask), logger *log.Logger) *TimerScheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &TimerScheduler{
		handler: handler,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
	}
}

func (s *TimerScheduler) Schedule(_ context.Context, task RollbackTask, delay time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", context.Canceled
	}

	taskID := uuid.NewString()
	s.timers[taskID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, taskID)
		s.mu.Unlock()

		s.handler(context.Background(), task)
	})
	return taskID, nil
}

// Close stops pending timers. Holds whose timers were dropped are
// picked up by the sweeper after the next start.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
