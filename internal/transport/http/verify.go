package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/parishworks/ticketing/internal/domain"
)

// Verifier is the minimal interface needed to check a presented
// ticket without admitting it.
type Verifier interface {
	Verify(ctx context.Context, payload string) (domain.Ticket, error)
}

// HandleVerify returns an HTTP handler for the read-only signature and
// status check at the gate.
func HandleVerify(svc Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req verifyRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		ticket, err := svc.Verify(r.Context(), req.Payload)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrMalformedPayload):
				writeError(w, http.StatusBadRequest, codeMalformedPayload, err.Error())
			case errors.Is(err, domain.ErrInvalidSignature):
				writeError(w, http.StatusUnauthorized, codeInvalidSignature, err.Error())
			case errors.Is(err, domain.ErrTicketNotFound):
				writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(verifyResponse{
			TicketID:   ticket.ID,
			TierID:     ticket.TierID,
			OwnerName:  ticket.OwnerName,
			Status:     string(ticket.Status),
			AdmittedAt: ticket.AdmittedAt,
			AdmittedBy: ticket.AdmittedBy,
		})
	}
}

type verifyRequest struct {
	Payload string `json:"payload"`
}

type verifyResponse struct {
	TicketID   string     `json:"ticket_id"`
	TierID     string     `json:"tier_id"`
	OwnerName  string     `json:"owner_name"`
	Status     string     `json:"status"`
	AdmittedAt *time.Time `json:"admitted_at,omitempty"`
	AdmittedBy string     `json:"admitted_by,omitempty"`
}
