package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/metrics"
	"github.com/parishworks/ticketing/internal/ratelimit"
	"github.com/parishworks/ticketing/internal/reservation"
)

// Finalizer is the minimal interface needed to finalize a reservation
// into an order.
type Finalizer interface {
	Finalize(ctx context.Context, in reservation.FinalizeInput) (reservation.FinalizeResult, error)
}

// HandleFinalize returns an HTTP handler for consuming a reservation.
// The limiter is keyed by checkout id so retry storms against one
// reservation cannot crowd out other buyers.
func HandleFinalize(svc Finalizer, limiter *ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		checkoutID, ok := parseFinalizePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		if d := limiter.Allow(checkoutID); !d.Allowed {
			metrics.RateLimitedTotal.WithLabelValues("finalize").Inc()
			writeRateLimited(w, int(d.RetryAfter.Seconds())+1)
			return
		}

		var req finalizeRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Finalize(r.Context(), reservation.FinalizeInput{
			CheckoutID: checkoutID,
			BuyerName:  req.BuyerName,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrReservationNotFound):
				writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case errors.Is(err, domain.ErrReservationExpired):
				writeError(w, http.StatusConflict, codeReservationExpired, err.Error())
			case errors.Is(err, domain.ErrReservationConsumed):
				writeError(w, http.StatusConflict, codeReservationConsumed, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		tickets := make([]ticketResponse, 0, len(res.Tickets))
		for _, t := range res.Tickets {
			tickets = append(tickets, ticketResponse{
				ID:            t.ID,
				TierID:        t.TierID,
				OwnerName:     t.OwnerName,
				Status:        string(t.Status),
				SignedPayload: t.SignedPayload,
			})
		}

		resp := finalizeResponse{
			OrderID:    res.Order.ID,
			CheckoutID: res.Order.CheckoutID,
			TierID:     res.Order.TierID,
			Quantity:   res.Order.Quantity,
			CreatedAt:  res.Order.CreatedAt,
			Tickets:    tickets,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func parseFinalizePath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "reservations" || parts[2] != "finalize" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type finalizeRequest struct {
	BuyerName string `json:"buyer_name"`
}

type ticketResponse struct {
	ID            string `json:"id"`
	TierID        string `json:"tier_id"`
	OwnerName     string `json:"owner_name"`
	Status        string `json:"status"`
	SignedPayload string `json:"signed_payload"`
}

type finalizeResponse struct {
	OrderID    string           `json:"order_id"`
	CheckoutID string           `json:"checkout_id"`
	TierID     string           `json:"tier_id"`
	Quantity   int              `json:"quantity"`
	CreatedAt  time.Time        `json:"created_at"`
	Tickets    []ticketResponse `json:"tickets"`
}
