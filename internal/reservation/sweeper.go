package reservation

import (
	"context"
	"log"
	"time"
)

const sweepBatchSize = 100

// Sweeper periodically releases expired pending reservations. It backs
// up the scheduled callbacks: a lost timer or a dispatch failure only
// delays the release until the next sweep.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	logger   *log.Logger
}

func NewSweeper(svc *Service, interval time.Duration, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.svc.ReleaseExpired(ctx, sweepBatchSize)
			if err != nil {
				s.logger.Printf("WARN: reservation sweep: %v", err)
				continue
			}
			if n > 0 {
				s.logger.Printf("reservation sweep released %d expired holds", n)
			}
		}
	}
}
