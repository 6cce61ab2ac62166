package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/metrics"
	"github.com/parishworks/ticketing/internal/ratelimit"
)

// AvailabilityReader is the minimal interface needed to report live
// per-tier counts.
type AvailabilityReader interface {
	GetAll(ctx context.Context, tierIDs []string) (map[string]int, error)
}

// HandleAvailability returns an HTTP handler for the live availability
// read. The limiter throttles polling per client; counts are served
// straight from the inventory store with no caching layer in between.
func HandleAvailability(svc AvailabilityReader, limiter *ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		if d := limiter.Allow(clientIdentity(r)); !d.Allowed {
			metrics.RateLimitedTotal.WithLabelValues("availability").Inc()
			writeRateLimited(w, int(d.RetryAfter.Seconds())+1)
			return
		}

		var tierIDs []string
		if raw := r.URL.Query().Get("tiers"); raw != "" {
			for _, id := range strings.Split(raw, ",") {
				if id = strings.TrimSpace(id); id != "" {
					tierIDs = append(tierIDs, id)
				}
			}
		}

		counts, err := svc.GetAll(r.Context(), tierIDs)
		if err != nil {
			if errors.Is(err, domain.ErrTierNotFound) {
				writeError(w, http.StatusNotFound, codeTierNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(availabilityResponse{Tiers: counts})
	}
}

// clientIdentity keys rate limiting by session when the client sends
// one, falling back to the remote host.
func clientIdentity(r *http.Request) string {
	if sid := r.Header.Get("X-Session-ID"); sid != "" {
		return sid
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type availabilityResponse struct {
	Tiers map[string]int `json:"tiers"`
}
