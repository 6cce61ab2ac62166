package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/reservation"
)

// SoftLocker is the minimal interface needed to place a reservation.
type SoftLocker interface {
	SoftLock(ctx context.Context, in reservation.SoftLockInput) (domain.Reservation, error)
}

// HandleReserve returns an HTTP handler for placing soft-lock
// reservations.
func HandleReserve(svc SoftLocker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req reserveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.TierID == "" {
			writeError(w, http.StatusBadRequest, codeTierRequired, "tier_id is required")
			return
		}

		res, err := svc.SoftLock(r.Context(), reservation.SoftLockInput{
			TierID:    req.TierID,
			Quantity:  req.Quantity,
			SessionID: req.SessionID,
		})
		if err != nil {
			var limited *domain.RateLimitedError
			var shortfall *domain.InsufficientStockError
			switch {
			case errors.Is(err, domain.ErrSessionRequired):
				writeError(w, http.StatusBadRequest, codeSessionRequired, err.Error())
			case errors.Is(err, domain.ErrInvalidQuantity):
				writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
			case errors.Is(err, domain.ErrSessionCapExceeded):
				writeError(w, http.StatusConflict, codeSessionCapExceeded, err.Error())
			case errors.Is(err, domain.ErrTierNotFound):
				writeError(w, http.StatusNotFound, codeTierNotFound, err.Error())
			case errors.As(err, &limited):
				writeRateLimited(w, limited.RetryAfterSeconds)
			case errors.As(err, &shortfall):
				writeInsufficientStock(w, shortfall)
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := reserveResponse{
			CheckoutID: res.CheckoutID,
			TierID:     res.TierID,
			Quantity:   res.Quantity,
			Status:     string(res.Status),
			ExpiresAt:  res.ExpiresAt,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func writeInsufficientStock(w http.ResponseWriter, e *domain.InsufficientStockError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		TierID    string `json:"tier_id"`
		Requested int    `json:"requested"`
		Available int    `json:"available"`
	}{
		Error:     e.Error(),
		Code:      codeInsufficientStock,
		TierID:    e.TierID,
		Requested: e.Requested,
		Available: e.Available,
	})
}

type reserveRequest struct {
	TierID    string `json:"tier_id"`
	Quantity  int    `json:"quantity"`
	SessionID string `json:"session_id"`
}

type reserveResponse struct {
	CheckoutID string    `json:"checkout_id"`
	TierID     string    `json:"tier_id"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expires_at"`
}
