package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/inventory"
)

// InventoryAdmin is the minimal interface needed for the admin
// inventory endpoint.
type InventoryAdmin interface {
	Initialize(ctx context.Context, tierID string, total int) error
	Reserve(ctx context.Context, tierID string, quantity int) (inventory.ReserveResult, error)
	Release(ctx context.Context, tierID string, quantity int) (int, error)
	GetAll(ctx context.Context, tierIDs []string) (map[string]int, error)
}

// HandleAdminInventory returns an HTTP handler for seeding tier counts
// and adjusting them. A request with "total" resets the tier to an
// absolute value; a request with "delta" moves the live count through
// the same atomic primitives the checkout path uses.
func HandleAdminInventory(svc InventoryAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			counts, err := svc.GetAll(r.Context(), nil)
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(availabilityResponse{Tiers: counts})
			return
		case http.MethodPost:
			var req adminInventoryRequest
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

			switch {
			case req.Total != nil:
				handleInitialize(w, r, svc, req)
			case req.Delta != 0:
				handleAdjust(w, r, svc, req)
			default:
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "total or delta is required")
			}
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

func handleInitialize(w http.ResponseWriter, r *http.Request, svc InventoryAdmin, req adminInventoryRequest) {
	total := *req.Total
	if total < 0 {
		writeError(w, http.StatusBadRequest, codeInvalidCapacity, "total must not be negative")
		return
	}
	if err := svc.Initialize(r.Context(), req.TierID, total); err != nil {
		if errors.Is(err, domain.ErrInvalidQuantity) {
			writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(adminInventoryResponse{
		TierID:    domain.NormalizeTierID(req.TierID),
		Available: total,
	})
}

func handleAdjust(w http.ResponseWriter, r *http.Request, svc InventoryAdmin, req adminInventoryRequest) {
	var available int
	var err error
	if req.Delta > 0 {
		available, err = svc.Release(r.Context(), req.TierID, req.Delta)
	} else {
		var res inventory.ReserveResult
		res, err = svc.Reserve(r.Context(), req.TierID, -req.Delta)
		if err == nil && !res.OK {
			writeInsufficientStock(w, &domain.InsufficientStockError{
				TierID:    domain.NormalizeTierID(req.TierID),
				Requested: -req.Delta,
				Available: res.Available,
			})
			return
		}
		available = res.Available
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTierNotFound):
			writeError(w, http.StatusNotFound, codeTierNotFound, err.Error())
		case errors.Is(err, domain.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(adminInventoryResponse{
		TierID:    domain.NormalizeTierID(req.TierID),
		Available: available,
	})
}

type adminInventoryRequest struct {
	TierID string `json:"tier_id"`
	Total  *int   `json:"total,omitempty"`
	Delta  int    `json:"delta,omitempty"`
}

type adminInventoryResponse struct {
	TierID    string `json:"tier_id"`
	Available int    `json:"available"`
}
