package domain

import "time"

type TicketStatus string

const (
	TicketStatusActive TicketStatus = "active"
	TicketStatusUsed   TicketStatus = "used"
)

// Ticket is one admitted-once unit issued at order finalization.
// Status moves active -> used exactly once; used is terminal.
type Ticket struct {
	ID            string
	TierID        string
	OwnerName     string
	Status        TicketStatus
	SignedPayload string
	AdmittedAt    *time.Time
	AdmittedBy    string
	CreatedAt     time.Time
}
