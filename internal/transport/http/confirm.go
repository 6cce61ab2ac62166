package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/parishworks/ticketing/internal/domain"
)

// Admitter is the minimal interface needed to flip a ticket to used.
type Admitter interface {
	Confirm(ctx context.Context, ticketID, deviceID string) (domain.Ticket, error)
}

// HandleConfirm returns an HTTP handler for online admission. Exactly
// one device wins per ticket; the loser gets the winner's attribution
// in a conflict response.
func HandleConfirm(svc Admitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req confirmRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.TicketID == "" {
			writeError(w, http.StatusBadRequest, codeTicketNotFound, "ticket_id is required")
			return
		}
		if req.DeviceID == "" {
			writeError(w, http.StatusBadRequest, codeDeviceRequired, "device_id is required")
			return
		}

		ticket, err := svc.Confirm(r.Context(), req.TicketID, req.DeviceID)
		if err != nil {
			var already *domain.AlreadyScannedError
			switch {
			case errors.As(err, &already):
				writeAlreadyScanned(w, already)
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
		_ = json.NewEncoder(w).Encode(confirmResponse{
			TicketID:   ticket.ID,
			Status:     string(ticket.Status),
			AdmittedAt: ticket.AdmittedAt,
			AdmittedBy: ticket.AdmittedBy,
		})
	}
}

func writeAlreadyScanned(w http.ResponseWriter, e *domain.AlreadyScannedError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(struct {
		Error     string    `json:"error"`
		Code      string    `json:"code"`
		TicketID  string    `json:"ticket_id"`
		ScannedAt time.Time `json:"scanned_at"`
		DeviceID  string    `json:"device_id"`
	}{
		Error:     e.Error(),
		Code:      codeAlreadyScanned,
		TicketID:  e.TicketID,
		ScannedAt: e.ScannedAt,
		DeviceID:  e.DeviceID,
	})
}

type confirmRequest struct {
	TicketID string `json:"ticket_id"`
	DeviceID string `json:"device_id"`
}

type confirmResponse struct {
	TicketID   string     `json:"ticket_id"`
	Status     string     `json:"status"`
	AdmittedAt *time.Time `json:"admitted_at,omitempty"`
	AdmittedBy string     `json:"admitted_by,omitempty"`
}
