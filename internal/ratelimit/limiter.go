package ratelimit

import (
	"sync"
	"time"

	"github.com/parishworks/ticketing/internal/clock"
)

// Decision is the outcome of one rate-limit check. A denied decision
// carries the wait until the oldest counted attempt leaves the window.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a sliding-window counter per identity. Each operation
// class (availability polling, reservation, finalize) gets its own
// Limiter with its own tuning; a denied attempt has no side effects
// anywhere else in the system.
type Limiter struct {
	mu     sync.Mutex
	clock  clock.Clock
	limit  int
	window time.Duration
	hits   map[string][]time.Time
}

func New(clk clock.Clock, limit int, window time.Duration) *Limiter {
	return &Limiter{
		clock:  clk,
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records an attempt for identity and reports whether it fits in
// the window. Denied attempts are not recorded, so a client that backs
// off recovers as soon as the window slides past its earlier attempts.
func (l *Limiter) Allow(identity string) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(identity, now)
	if len(kept) >= l.limit {
		retry := kept[0].Add(l.window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}
	}

	l.hits[identity] = append(kept, now)
	return Decision{Allowed: true, Remaining: l.limit - len(kept) - 1}
}

func (l *Limiter) prune(identity string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	old := l.hits[identity]
	kept := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.hits, identity)
		return nil
	}
	l.hits[identity] = kept
	return kept
}
