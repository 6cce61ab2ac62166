package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/parishworks/ticketing/internal/domain"
	"github.com/parishworks/ticketing/internal/ticket"
)

// ScanSyncer is the minimal interface needed to replay offline scans.
type ScanSyncer interface {
	SyncScan(ctx context.Context, sub ticket.ScanSubmission) (ticket.SyncVerdict, error)
}

// HandleSyncScan returns an HTTP handler for offline scan replay. The
// verdict is always 200: a lost admission race is a normal outcome for
// the syncing device, not a request error.
func HandleSyncScan(svc ScanSyncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req syncScanRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.DeviceID == "" {
			writeError(w, http.StatusBadRequest, codeDeviceRequired, "device_id is required")
			return
		}

		verdict, err := svc.SyncScan(r.Context(), ticket.ScanSubmission{
			TicketID:   req.TicketID,
			DeviceID:   req.DeviceID,
			ScannedAt:  req.ScannedAt,
			RawPayload: req.Payload,
		})
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
		_ = json.NewEncoder(w).Encode(syncScanResponse{
			TicketID:  req.TicketID,
			Confirmed: verdict.Confirmed,
			Status:    string(verdict.Status),
			ScannedAt: verdict.ScannedAt,
			DeviceID:  verdict.DeviceID,
		})
	}
}

type syncScanRequest struct {
	TicketID  string    `json:"ticket_id"`
	DeviceID  string    `json:"device_id"`
	ScannedAt time.Time `json:"scanned_at"`
	Payload   string    `json:"payload"`
}

type syncScanResponse struct {
	TicketID  string    `json:"ticket_id"`
	Confirmed bool      `json:"confirmed"`
	Status    string    `json:"status"`
	ScannedAt time.Time `json:"scanned_at"`
	DeviceID  string    `json:"device_id"`
}
