package http

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidQuantity     = "invalid_quantity"
	codeInvalidCapacity     = "invalid_capacity"
	codeTierRequired        = "tier_required"
	codeSessionRequired     = "session_required"
	codeSessionCapExceeded  = "session_cap_exceeded"
	codeInsufficientStock   = "insufficient_stock"
	codeTierNotFound        = "tier_not_found"
	codeRateLimited         = "rate_limited"
	codeReservationNotFound = "reservation_not_found"
	codeReservationExpired  = "reservation_expired"
	codeReservationConsumed = "reservation_consumed"
	codeTicketNotFound      = "ticket_not_found"
	codeInvalidSignature    = "invalid_signature"
	codeMalformedPayload    = "malformed_payload"
	codeAlreadyScanned      = "already_scanned"
	codeDeviceRequired      = "device_required"
	codeInvalidID           = "invalid_id"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

type rateLimitedResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

func writeRateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(rateLimitedResponse{
		Error:             "rate limit exceeded",
		Code:              codeRateLimited,
		RetryAfterSeconds: retryAfterSeconds,
	})
}
