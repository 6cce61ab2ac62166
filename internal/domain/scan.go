package domain

import "time"

// ScanRecord is a device-local entry in the offline scan log. One
// record per ticket per device; re-scanning updates in place. Synced
// flips once the server has returned its verdict, Conflict when the
// server reports another device confirmed the ticket first.
type ScanRecord struct {
	TicketID   string    `json:"ticket_id"`
	DeviceID   string    `json:"device_id"`
	ScannedAt  time.Time `json:"scanned_at"`
	Synced     bool      `json:"synced"`
	Conflict   bool      `json:"conflict"`
	RawPayload string    `json:"raw_payload"`
	// Winner attribution filled in on a conflict verdict.
	ConflictAt     *time.Time `json:"conflict_at,omitempty"`
	ConflictDevice string     `json:"conflict_device,omitempty"`
}
