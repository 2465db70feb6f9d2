package domain

import "time"

// TicketChangeType captures what a history entry records.
type TicketChangeType string

const (
	ChangeTypeCreated TicketChangeType = "CREATED"
	ChangeTypeStatus  TicketChangeType = "STATUS_CHANGE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID            int64
	TicketID      int64
	ChangeType    TicketChangeType
	OldStatus     *TicketStatus
	NewStatus     TicketStatus
	ChangedByID   int64
	ChangedByName string
	CreatedAt     time.Time
}
